package session

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"relay-cli/internal/logger"

	"github.com/sirupsen/logrus"
)

type fakeStream struct {
	buf    bytes.Buffer
	closed bool
	err    error
}

func (f *fakeStream) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.buf.Write(p)
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func quietLog() *logger.LogEntry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestSession(st Stream) *Session {
	return New(Options{Stream: st, Log: quietLog()})
}

func TestNew_FreshSurfaceHasPrompt(t *testing.T) {
	s := newTestSession(nil)
	if got := s.Surface().Text; got != "> " {
		t.Fatalf("Surface().Text = %q, want %q", got, "> ")
	}
	if s.ID() == "" {
		t.Fatal("ID() is empty")
	}
}

func TestNew_SessionsDoNotShareState(t *testing.T) {
	a := newTestSession(nil)
	b := newTestSession(nil)
	if a.ID() == b.ID() {
		t.Fatalf("two sessions share id %q", a.ID())
	}

	a.HandleChunk(`{"type":"assistant","message":{"content":[{"type":"text","text":"only a"}]}}` + "\n")
	if got := b.Surface().History(); got != "" {
		t.Fatalf("session b history = %q, want empty", got)
	}
}

func TestHandleChunk_RendersAboveThePrompt(t *testing.T) {
	s := newTestSession(nil)
	blocks, _ := s.HandleChunk(`{"type":"assistant","message":{"content":[{"type":"text","text":"hello"}]}}` + "\n")

	if len(blocks) != 1 || blocks[0] != "hello\n\n" {
		t.Fatalf("blocks = %q, want [%q]", blocks, "hello\n\n")
	}
	if got := s.Surface().Text; got != "hello\n\n> " {
		t.Fatalf("Surface().Text = %q, want %q", got, "hello\n\n> ")
	}
}

func TestHandleChunk_SplitRecordAcrossChunks(t *testing.T) {
	s := newTestSession(nil)
	line := `{"type":"result","result":"boom","is_error":true}` + "\n"

	blocks, done := s.HandleChunk(line[:17])
	if blocks != nil || done {
		t.Fatalf("partial chunk rendered %q (done=%v)", blocks, done)
	}
	blocks, done = s.HandleChunk(line[17:])
	if len(blocks) != 1 || blocks[0] != "ERROR: boom\n\n" {
		t.Fatalf("blocks = %q, want [%q]", blocks, "ERROR: boom\n\n")
	}
	if !done {
		t.Fatal("done = false after a result record")
	}
}

func TestHandleChunk_SilentResultStillReportsDone(t *testing.T) {
	s := newTestSession(nil)
	chunk := `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash"}]}}` + "\n" +
		`{"type":"result","result":"all good","is_error":false}` + "\n"

	blocks, done := s.HandleChunk(chunk)
	if blocks != nil {
		t.Fatalf("blocks = %q, want nothing rendered", blocks)
	}
	if !done {
		t.Fatal("done = false, want true for a turn that renders nothing")
	}
}

func TestHandleChunk_MalformedLineIsDroppedNotFatal(t *testing.T) {
	var logged bytes.Buffer
	l := logrus.New()
	l.SetOutput(&logged)
	s := New(Options{Log: logrus.NewEntry(l)})

	blocks, _ := s.HandleChunk("{not json\n" + `{"type":"result","result":"ok","is_error":true}` + "\n")
	if len(blocks) != 1 || blocks[0] != "ERROR: ok\n\n" {
		t.Fatalf("blocks = %q, want the record after the bad line", blocks)
	}
	if !strings.Contains(logged.String(), "drop malformed record") {
		t.Fatalf("log output %q does not report the bad line", logged.String())
	}
}

func TestHandleChunk_PreservesArrivalOrder(t *testing.T) {
	s := newTestSession(nil)
	chunk := `{"type":"assistant","message":{"content":[{"type":"text","text":"first"}]}}` + "\n" +
		`{"type":"assistant","message":{"content":[{"type":"text","text":"second"}]}}` + "\n"

	s.HandleChunk(chunk)
	if got := s.Surface().History(); got != "first\n\nsecond\n\n" {
		t.Fatalf("History() = %q, want %q", got, "first\n\nsecond\n\n")
	}
}

func TestSend_WritesWireFormatAndEchoes(t *testing.T) {
	st := &fakeStream{}
	s := newTestSession(st)

	if err := s.Send("  hello  "); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := `{"type":"user","message":{"role":"user","content":[{"type":"text","text":"hello"}]}}` + "\n"
	if got := st.buf.String(); got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}
	if got := s.Surface().History(); got != "You: hello\n\n" {
		t.Fatalf("History() = %q, want %q", got, "You: hello\n\n")
	}
}

func TestSend_EmptyInputIsNoOp(t *testing.T) {
	st := &fakeStream{}
	s := newTestSession(st)

	if err := s.Send("   "); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if st.buf.Len() != 0 {
		t.Fatalf("wire = %q, want nothing", st.buf.String())
	}
}

func TestSend_NoStream(t *testing.T) {
	s := newTestSession(nil)
	if err := s.Send("hi"); !errors.Is(err, ErrStreamUnavailable) {
		t.Fatalf("Send err = %v, want ErrStreamUnavailable", err)
	}
	if got := s.Surface().History(); got != "" {
		t.Fatalf("History() = %q, want empty after failed send", got)
	}
}

func TestSubmit_ConsumesPromptAndKeepsDraftOnFailure(t *testing.T) {
	st := &fakeStream{}
	s := newTestSession(st)
	s.SetInput("run tests")

	input, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if input != "run tests" {
		t.Fatalf("input = %q, want %q", input, "run tests")
	}
	if got := s.Surface().Text; got != "You: run tests\n\n> " {
		t.Fatalf("Surface().Text = %q, want %q", got, "You: run tests\n\n> ")
	}

	st.err = errors.New("broken pipe")
	s.SetInput("draft")
	if _, err := s.Submit(); err == nil {
		t.Fatal("Submit on broken stream: want error")
	}
	if got := s.Surface().Input(); got != "draft" {
		t.Fatalf("Input() = %q, want the draft to survive", got)
	}
}

func TestClearHistory_KeepsDraftInput(t *testing.T) {
	s := newTestSession(nil)
	s.HandleChunk(`{"type":"assistant","message":{"content":[{"type":"text","text":"old"}]}}` + "\n")
	s.SetInput("draft")

	s.ClearHistory()
	if got := s.Surface().History(); got != "" {
		t.Fatalf("History() = %q, want empty", got)
	}
	if got := s.Surface().Input(); got != "draft" {
		t.Fatalf("Input() = %q, want %q", got, "draft")
	}
}

func TestAppendNote_NormalizesTrailingBlankLine(t *testing.T) {
	s := newTestSession(nil)
	s.AppendNote("agent restarted")
	if got := s.Surface().History(); got != "agent restarted\n\n" {
		t.Fatalf("History() = %q, want %q", got, "agent restarted\n\n")
	}
}

func TestAttachStream_RevivesClosedSession(t *testing.T) {
	old := &fakeStream{}
	s := newTestSession(old)
	s.HandleChunk(`{"type":"assist`) // partial record left pending
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	replacement := &fakeStream{}
	s.AttachStream(replacement)
	if err := s.Send("hello"); err != nil {
		t.Fatalf("Send after AttachStream: %v", err)
	}
	if replacement.buf.Len() == 0 {
		t.Fatal("replacement stream saw no bytes")
	}
	if old.buf.Len() != 0 {
		t.Fatalf("old stream saw %q after replacement", old.buf.String())
	}

	// the stale partial record must not pollute the new stream's first line
	blocks, _ := s.HandleChunk(`{"type":"result","result":"ok","is_error":true}` + "\n")
	if len(blocks) != 1 || blocks[0] != "ERROR: ok\n\n" {
		t.Fatalf("blocks = %q, want a clean first record", blocks)
	}
}

func TestClose_IsIdempotentAndBlocksSends(t *testing.T) {
	st := &fakeStream{}
	s := newTestSession(st)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !st.closed {
		t.Fatal("stream not closed")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Send("hi"); !errors.Is(err, ErrStreamUnavailable) {
		t.Fatalf("Send after Close = %v, want ErrStreamUnavailable", err)
	}
}
