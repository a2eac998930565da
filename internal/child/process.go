package child

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"relay-cli/internal/logger"

	"github.com/creack/pty"
)

// protocolArgs 固定协议参数：代理子进程必须以逐行 JSON 模式运行。
var protocolArgs = []string{
	"--input-format", "stream-json",
	"--output-format", "stream-json",
	"--verbose",
}

// Spec describes how to launch the agent child process.
type Spec struct {
	Bin     string
	Args    []string
	Workdir string
	BaseEnv []string

	// OnData receives raw output chunks exactly as read from the pty.
	// Called from a single goroutine, chunks in read order. Chunks not yet
	// delivered when Close is called are dropped.
	OnData func(chunk string)
	// OnExit is called once, after the last delivered OnData call.
	OnExit func(code int)
}

// Process is a running agent child. Output flows through OnData; input goes
// through Write as raw bytes. Stdin is a pipe rather than the pty so written
// bytes are not echoed back into the output stream.
type Process struct {
	cmd   *exec.Cmd
	ptmx  *os.File
	stdin io.WriteCloser
	log   *logger.LogEntry

	done     chan struct{}
	readDone chan struct{}
	stop     chan struct{}
	once     sync.Once
	exitCode int
}

// Command returns the full argv the process will run with.
func Command(spec Spec) []string {
	argv := append([]string{spec.Bin}, spec.Args...)
	return append(argv, protocolArgs...)
}

// Start launches the child on a pty and begins pumping its output.
func Start(spec Spec) (*Process, error) {
	if strings.TrimSpace(spec.Bin) == "" {
		return nil, errors.New("empty agent binary")
	}

	argv := Command(spec)
	cmd := exec.Command(argv[0], argv[1:]...)
	if strings.TrimSpace(spec.Workdir) != "" {
		cmd.Dir = spec.Workdir
	}
	cmd.Env = withChildEnv(spec.BaseEnv)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	cmd.Stdout = tty
	cmd.Stderr = tty

	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, fmt.Errorf("start %s: %w", spec.Bin, err)
	}
	// 子进程已持有 tty，父进程侧关闭。
	_ = tty.Close()

	p := &Process{
		cmd:      cmd,
		ptmx:     ptmx,
		stdin:    stdin,
		log:      logger.Named("child"),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
		stop:     make(chan struct{}),
	}
	p.log.WithField("pid", cmd.Process.Pid).Infof("started %s", strings.Join(argv, " "))

	go p.readLoop(spec.OnData)
	go p.waitLoop(spec.OnExit)
	return p, nil
}

// Write sends raw bytes to the child's stdin.
func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Alive reports whether the child has not yet exited.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitCode is valid once Alive reports false.
func (p *Process) ExitCode() int {
	return p.exitCode
}

// Close kills the child and releases the pty. Safe to call more than once.
// Never blocks on the OnData consumer: undelivered chunks are dropped.
func (p *Process) Close() error {
	p.once.Do(func() {
		close(p.stop)
		_ = p.stdin.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.ptmx.Close()
	})
	<-p.done
	return nil
}

// readLoop pumps pty output through a delivery goroutine so a stalled OnData
// consumer cannot wedge teardown: once stop is closed the loop abandons the
// hand-off and returns.
func (p *Process) readLoop(onData func(string)) {
	defer close(p.readDone)

	deliver := make(chan string)
	deliverDone := make(chan struct{})
	go func() {
		defer close(deliverDone)
		for chunk := range deliver {
			if onData != nil {
				onData(chunk)
			}
		}
	}()

	tmp := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(tmp)
		if n > 0 {
			select {
			case deliver <- string(tmp[:n]):
			case <-p.stop:
				close(deliver)
				return
			}
		}
		if err != nil {
			// pty 关闭或子进程退出都会走到这里。
			break
		}
	}
	close(deliver)
	// 正常退出路径等投递排空，保证 OnExit 晚于最后一次 OnData。
	select {
	case <-deliverDone:
	case <-p.stop:
	}
}

func (p *Process) waitLoop(onExit func(int)) {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode = code
	p.log.WithField("code", code).Info("agent exited")
	// 关闭 pty 终止 readLoop，等它排空后再通知退出，保证 OnData 先于 OnExit。
	_ = p.ptmx.Close()
	<-p.readDone
	close(p.done)
	if onExit != nil {
		onExit(code)
	}
}

func withChildEnv(base []string) []string {
	if len(base) == 0 {
		base = os.Environ()
	}
	env := append([]string{}, base...)
	env = setEnv(env, "NO_COLOR", "1")
	env = setEnv(env, "TERM", "dumb")
	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
