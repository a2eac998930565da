package tui

import (
	"fmt"
	"strings"

	"relay-cli/internal/child"
	"relay-cli/internal/logger"
	"relay-cli/internal/session"
	"relay-cli/internal/tui/slash"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Options struct {
	Session *session.Session
	// Spawn starts (or restarts) the agent child, wiring its output into
	// the channel returned alongside the process.
	Spawn         func(onData func(string), onExit func(int)) (*child.Process, error)
	Agent         string
	Workdir       string
	InitialPrompt string
}

type childChunkMsg struct {
	Chunk string
}

type childExitMsg struct {
	Code int
}

type startPromptMsg struct {
	Text string
}

type childEvent struct {
	chunk  string
	exited bool
	code   int
}

type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spin     spinner.Model
	slash    *slash.State
	history  promptHistory

	sess    *session.Session
	proc    *child.Process
	spawn   func(onData func(string), onExit func(int)) (*child.Process, error)
	childCh chan childEvent

	agent    string
	workdir  string
	initSend string
	pending  bool
	err      error
	width    int
	height   int
	log      *logger.LogEntry
}

func New(opts Options) *Model {
	ti := textarea.New()
	ti.Placeholder = "Message the agent…"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.SetWidth(90)
	ti.SetHeight(1) // 默认单行，按需扩展
	ti.ShowLineNumbers = false
	ti.Focus()

	vp := viewport.New(90, 18)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := &Model{
		textarea: ti,
		viewport: vp,
		spin:     spin,
		slash:    slash.NewState(),
		sess:     opts.Session,
		spawn:    opts.Spawn,
		childCh:  make(chan childEvent, 16),
		agent:    opts.Agent,
		workdir:  opts.Workdir,
		initSend: opts.InitialPrompt,
		width:    90,
		height:   24,
		log:      logger.Named("tui"),
	}
	m.refreshTranscript(true)
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.listenChild()}
	if err := m.startChild(); err != nil {
		m.err = err
	}
	if prompt := strings.TrimSpace(m.initSend); prompt != "" {
		cmds = append(cmds, func() tea.Msg {
			return startPromptMsg{Text: prompt}
		})
	}
	return tea.Batch(cmds...)
}

// startChild launches the agent and attaches its stream to the session.
func (m *Model) startChild() error {
	if m.spawn == nil {
		return fmt.Errorf("no agent spawner configured")
	}
	ch := m.childCh
	proc, err := m.spawn(
		func(chunk string) { ch <- childEvent{chunk: chunk} },
		func(code int) { ch <- childEvent{exited: true, code: code} },
	)
	if err != nil {
		return err
	}
	m.proc = proc
	m.sess.AttachStream(proc)
	return nil
}

func (m *Model) listenChild() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.childCh
		if !ok {
			return nil
		}
		if ev.exited {
			return childExitMsg{Code: ev.code}
		}
		return childChunkMsg{Chunk: ev.chunk}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case childChunkMsg:
		blocks, done := m.sess.HandleChunk(msg.Chunk)
		// done 也要停 spinner：纯工具轮次可能整轮不渲染任何块。
		if done || len(blocks) > 0 {
			m.pending = false
		}
		if len(blocks) > 0 {
			m.refreshTranscript(false)
		}
		return m, m.listenChild()
	case childExitMsg:
		m.pending = false
		m.log.WithField("code", msg.Code).Warn("agent exited")
		m.sess.AppendNote(fmt.Sprintf("agent exited (code %d); /restart to relaunch", msg.Code))
		m.refreshTranscript(false)
		return m, m.listenChild()
	case startPromptMsg:
		// 初始 prompt 走与手动输入相同的提交路径
		if err := m.sess.Send(msg.Text); err != nil {
			m.err = err
		} else {
			m.pending = true
			m.history.Add(msg.Text)
		}
		m.refreshTranscript(false)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.setComposerHeight()
	m.syncSlash()
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.Type == tea.KeyEnter && msg.Alt {
		return nil, false // Alt+Enter 交给 textarea 换行
	}
	if m.slash.Open() {
		if act, handled := m.slash.HandleKey(msg.String()); handled {
			return m.applySlashAction(act), true
		}
	}

	switch msg.Type {
	case tea.KeyPgUp:
		m.viewport.ViewUp()
		return nil, true
	case tea.KeyPgDown:
		m.viewport.ViewDown()
		return nil, true
	case tea.KeyUp:
		if m.textarea.LineCount() <= 1 {
			if text, ok := m.history.Prev(m.textarea.Value()); ok {
				m.textarea.SetValue(text)
				m.textarea.CursorEnd()
				return nil, true
			}
		}
	case tea.KeyDown:
		if m.history.Browsing() {
			if text, ok := m.history.Next(); ok {
				m.textarea.SetValue(text)
				m.textarea.CursorEnd()
				return nil, true
			}
		}
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quit(), true
	case "enter":
		return m.submit(), true
	}
	return nil, false
}

func (m *Model) submit() tea.Cmd {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return nil
	}
	if strings.HasPrefix(input, "/") {
		act := m.slash.ResolveSubmit(input)
		m.textarea.Reset()
		m.setComposerHeight()
		return m.applySlashAction(act)
	}

	if err := m.sess.Send(input); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.pending = true
	m.history.Add(input)
	m.textarea.Reset()
	m.setComposerHeight()
	m.refreshTranscript(false)
	return nil
}

func (m *Model) applySlashAction(act slash.Action) tea.Cmd {
	switch act.Kind {
	case slash.ActionInsert:
		m.textarea.SetValue(act.NewValue)
		m.textarea.CursorEnd()
		return nil
	case slash.ActionError:
		m.sess.AppendNote(act.Message)
		m.refreshTranscript(false)
		return nil
	case slash.ActionSubmit:
		m.textarea.Reset()
		m.setComposerHeight()
		return m.runSlash(act.Command)
	default:
		return nil
	}
}

func (m *Model) runSlash(cmd slash.Command) tea.Cmd {
	switch cmd {
	case slash.CommandQuit, slash.CommandExit:
		return m.quit()
	case slash.CommandClear:
		m.sess.ClearHistory()
		m.refreshTranscript(true)
		return nil
	case slash.CommandCopy:
		if err := clipboard.WriteAll(m.sess.Surface().History()); err != nil {
			m.sess.AppendNote(fmt.Sprintf("copy failed: %v", err))
		} else {
			m.sess.AppendNote("transcript copied to clipboard")
		}
		m.refreshTranscript(false)
		return nil
	case slash.CommandStatus:
		m.sess.AppendNote(m.statusText())
		m.refreshTranscript(false)
		return nil
	case slash.CommandRestart:
		return m.restartChild()
	default:
		return nil
	}
}

func (m *Model) statusText() string {
	state := "down"
	if m.proc != nil && m.proc.Alive() {
		state = "up"
	}
	parts := []string{
		fmt.Sprintf("agent: %s (%s)", m.agent, state),
		fmt.Sprintf("session: %s", m.sess.ID()),
	}
	if m.workdir != "" {
		parts = append(parts, fmt.Sprintf("dir: %s", m.workdir))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) restartChild() tea.Cmd {
	if m.proc != nil {
		_ = m.proc.Close()
	}
	m.pending = false
	if err := m.startChild(); err != nil {
		m.err = err
		m.sess.AppendNote(fmt.Sprintf("restart failed: %v", err))
	} else {
		m.err = nil
		m.log.Info("agent restarted")
		m.sess.AppendNote("agent restarted")
	}
	m.refreshTranscript(false)
	return nil
}

func (m *Model) quit() tea.Cmd {
	if m.proc != nil {
		_ = m.proc.Close()
	}
	_ = m.sess.Close()
	return tea.Quit
}

// refreshTranscript pushes the session history into the viewport. The view
// only follows new output when it was already at the bottom; a reader who
// scrolled up stays put.
func (m *Model) refreshTranscript(force bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.sess.Surface().History())
	if force || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	composerHeight := m.textarea.Height() + 2 // border
	statusHeight := 1
	hintsHeight := 1
	mainHeight := height - composerHeight - statusHeight - hintsHeight
	if mainHeight < 4 {
		mainHeight = 4
	}
	m.viewport.Width = width
	m.viewport.Height = mainHeight
	m.textarea.SetWidth(width - 4)
	m.refreshTranscript(false)
}

func (m *Model) setComposerHeight() {
	lines := strings.Count(m.textarea.Value(), "\n") + 1
	if lines < 1 {
		lines = 1
	}
	if lines > 6 {
		lines = 6
	}
	if m.textarea.Height() != lines {
		m.textarea.SetHeight(lines)
		if m.width > 0 && m.height > 0 {
			m.resize(m.width, m.height)
		}
	}
}

func (m *Model) syncSlash() {
	line := m.textarea.Line()
	info := m.textarea.LineInfo()
	m.slash.SyncInput(slash.Input{
		Value:        m.textarea.Value(),
		CursorLine:   line,
		CursorColumn: info.CharOffset,
	})
}

func (m *Model) View() string {
	transcript := m.viewport.View()
	composer := composerStyle.Width(maxInt(20, m.width) - 2).Render(m.textarea.View())
	alive := m.proc != nil && m.proc.Alive()
	status := statusLine(m.agent, alive, m.pending, m.err, m.width, m.spin.View())
	hints := hintStyle.Width(maxInt(20, m.width)).Render(
		"Enter send • Alt+Enter newline • / commands • PgUp/PgDn scroll • Ctrl+C quit")

	content := lipgloss.JoinVertical(lipgloss.Left, transcript, composer, status, hints)
	if m.slash.Open() {
		overlay := modalStyle.Render(m.slash.View(m.width - 6))
		return lipgloss.JoinVertical(lipgloss.Left, content, overlay)
	}
	return content
}

// Transcript returns the rendered history, for callers that print it after
// the program exits.
func (m *Model) Transcript() string {
	return m.sess.Surface().History()
}

var (
	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5E6472")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7A85")).
			Padding(0, 1)
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1).
			BorderForeground(lipgloss.Color("#FFB454"))
)
