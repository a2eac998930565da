package tui

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"relay-cli/internal/session"

	"github.com/sirupsen/logrus"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

type fakeStream struct {
	buf    bytes.Buffer
	closed bool
}

func (f *fakeStream) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *fakeStream) Close() error                { f.closed = true; return nil }

func newTestModel(t *testing.T) (*Model, *fakeStream) {
	t.Helper()
	st := &fakeStream{}
	l := logrus.New()
	l.SetOutput(io.Discard)
	sess := session.New(session.Options{Stream: st, Log: logrus.NewEntry(l)})
	m := New(Options{Session: sess, Agent: "claude", Workdir: "/tmp/w"})
	m.resize(100, 30)
	return m, st
}

func TestSubmit_SendsAndEchoes(t *testing.T) {
	m, st := newTestModel(t)
	m.textarea.SetValue("hello agent")

	m.submit()

	if !strings.Contains(st.buf.String(), `"text":"hello agent"`) {
		t.Fatalf("wire = %q, want the prompt text", st.buf.String())
	}
	if got := m.Transcript(); got != "You: hello agent\n\n" {
		t.Fatalf("Transcript() = %q, want the echo", got)
	}
	if m.textarea.Value() != "" {
		t.Fatalf("textarea not cleared: %q", m.textarea.Value())
	}
	if !m.pending {
		t.Fatal("pending not set after send")
	}
}

func TestSubmit_EmptyIsNoOp(t *testing.T) {
	m, st := newTestModel(t)
	m.textarea.SetValue("   ")
	m.submit()
	if st.buf.Len() != 0 {
		t.Fatalf("wire = %q, want nothing", st.buf.String())
	}
}

func TestChunkClearsPendingAndAppends(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending = true

	mdl, _ := m.Update(childChunkMsg{Chunk: `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}` + "\n"})
	m = mdl.(*Model)

	if m.pending {
		t.Fatal("pending should clear once a block renders")
	}
	if got := m.Transcript(); got != "hi\n\n" {
		t.Fatalf("Transcript() = %q, want %q", got, "hi\n\n")
	}
}

func TestSilentResultClearsPending(t *testing.T) {
	m, _ := newTestModel(t)
	m.pending = true

	// 整轮只有工具调用加成功 result，没有任何可渲染块。
	chunk := `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash"}]}}` + "\n" +
		`{"type":"result","result":"done","is_error":false}` + "\n"
	mdl, _ := m.Update(childChunkMsg{Chunk: chunk})
	m = mdl.(*Model)

	if m.pending {
		t.Fatal("pending should clear on a result record even when nothing renders")
	}
	if got := m.Transcript(); got != "" {
		t.Fatalf("Transcript() = %q, want empty", got)
	}
}

func TestChildExit_NotesInTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	mdl, _ := m.Update(childExitMsg{Code: 1})
	m = mdl.(*Model)
	if !strings.Contains(m.Transcript(), "agent exited (code 1)") {
		t.Fatalf("Transcript() = %q, want exit note", m.Transcript())
	}
}

func TestSlashClear_DropsTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	m.sess.HandleChunk(`{"type":"assistant","message":{"content":[{"type":"text","text":"old"}]}}` + "\n")

	m.textarea.SetValue("/clear")
	m.submit()

	if got := m.Transcript(); got != "" {
		t.Fatalf("Transcript() = %q, want empty", got)
	}
}

func TestSlashStatus_ReportsAgentAndSession(t *testing.T) {
	m, _ := newTestModel(t)
	m.textarea.SetValue("/status")
	m.submit()

	got := m.Transcript()
	if !strings.Contains(got, "agent: claude (down)") {
		t.Fatalf("Transcript() = %q, want agent state", got)
	}
	if !strings.Contains(got, "session: "+m.sess.ID()) {
		t.Fatalf("Transcript() = %q, want session id", got)
	}
}

func TestSlashUnknown_ReportsError(t *testing.T) {
	m, st := newTestModel(t)
	m.textarea.SetValue("/bogus")
	m.submit()

	if !strings.Contains(m.Transcript(), "unknown command") {
		t.Fatalf("Transcript() = %q, want unknown-command note", m.Transcript())
	}
	if st.buf.Len() != 0 {
		t.Fatalf("slash input leaked to the wire: %q", st.buf.String())
	}
}

func TestView_ContainsStatusAndHints(t *testing.T) {
	m, _ := newTestModel(t)
	view := stripANSI(m.View())
	if !strings.Contains(view, "Agent: claude") {
		t.Fatalf("view missing status line:\n%s", view)
	}
	if !strings.Contains(view, "Ctrl+C quit") {
		t.Fatalf("view missing hints:\n%s", view)
	}
}

func TestStatusLine_TruncatesToWidth(t *testing.T) {
	line := stripANSI(statusLine("claude", true, false, nil, 24, ""))
	for _, l := range strings.Split(line, "\n") {
		if w := len([]rune(l)); w > 24 {
			t.Fatalf("status line width %d exceeds 24: %q", w, l)
		}
	}
}

func TestPromptHistory_BrowseAndDraft(t *testing.T) {
	var h promptHistory
	h.Add("first")
	h.Add("second")

	got, ok := h.Prev("draft text")
	if !ok || got != "second" {
		t.Fatalf("Prev = %q, %v; want second", got, ok)
	}
	got, _ = h.Prev(got)
	if got != "first" {
		t.Fatalf("Prev = %q, want first", got)
	}
	got, _ = h.Next()
	if got != "second" {
		t.Fatalf("Next = %q, want second", got)
	}
	got, ok = h.Next()
	if !ok || got != "draft text" {
		t.Fatalf("Next = %q, %v; want the saved draft", got, ok)
	}
	if h.Browsing() {
		t.Fatal("should not be browsing after returning to draft")
	}
}
