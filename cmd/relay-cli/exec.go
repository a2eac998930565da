package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"relay-cli/internal/child"
	"relay-cli/internal/logger"
	"relay-cli/internal/protocol"
	"relay-cli/internal/render"
	"relay-cli/internal/stream"
)

// execMain 一次性模式：发送单条 prompt，把渲染后的输出写到 stdout，
// 等到 result 记录或子进程退出即返回。
func execMain(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("exec")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse exec args: %v", err)
	}
	cli.finalizePrompt(fs)
	cli.configOverrides = stringSlice(prependOverrides(root.overrides, []string(cli.configOverrides)))

	if strings.TrimSpace(cli.prompt) == "" {
		log.Fatalf("prompt is required for exec")
	}

	cfg, rt := loadConfig(cli)
	if logFile, _, err := logger.SetupFile(rt.LogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	workdir := resolveWorkdir(cfg.Workdir)
	chunks := make(chan string, 16)
	exited := make(chan int, 1)
	proc, err := child.Start(child.Spec{
		Bin:     cfg.Agent,
		Args:    cfg.AgentArgs,
		Workdir: workdir,
		OnData:  func(chunk string) { chunks <- chunk },
		OnExit:  func(code int) { exited <- code },
	})
	if err != nil {
		log.Fatalf("start agent: %v", err)
	}
	defer proc.Close()

	payload, err := protocol.EncodeUserMessage(cli.prompt)
	if err != nil {
		log.Fatalf("encode prompt: %v", err)
	}
	if _, err := proc.Write(payload); err != nil {
		log.Fatalf("write to agent: %v", err)
	}

	protocolLog := logger.Named("protocol")
	var reassembler stream.Reassembler
	dispatcher := render.NewDispatcher()
	timeout := time.After(time.Duration(rt.ExecTimeoutSecs) * time.Second)

	for {
		select {
		case chunk := <-chunks:
			for _, line := range reassembler.Feed(chunk) {
				rec, err := protocol.Decode(line)
				if err != nil {
					protocolLog.WithField("line", line).Warnf("drop malformed record: %v", err)
					continue
				}
				if block, ok := dispatcher.Dispatch(rec); ok {
					fmt.Fprint(os.Stdout, block)
				}
				if rec.Type() == "result" {
					return
				}
			}
		case code := <-exited:
			if code != 0 {
				log.Fatalf("agent exited with code %d", code)
			}
			return
		case <-timeout:
			log.Fatalf("timed out after %ds waiting for the agent", rt.ExecTimeoutSecs)
		}
	}
}
