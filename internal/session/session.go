package session

import (
	"errors"
	"fmt"
	"strings"

	"relay-cli/internal/logger"
	"relay-cli/internal/protocol"
	"relay-cli/internal/render"
	"relay-cli/internal/stream"
	"relay-cli/internal/surface"

	"github.com/google/uuid"
)

// ErrStreamUnavailable is returned when a send is attempted with no live
// agent stream. The message is not queued or retried.
var ErrStreamUnavailable = errors.New("agent stream unavailable")

// Stream is the duplex byte stream to the agent child process.
type Stream interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// Session owns exactly one pending-record buffer, one stream handle and one
// presentation surface. Two sessions never share any of the three. The whole
// inbound pipeline runs synchronously inside HandleChunk, so records are
// presented in the exact order their terminating newlines were observed.
type Session struct {
	id          string
	reassembler stream.Reassembler
	dispatcher  *render.Dispatcher
	stream      Stream
	surface     surface.Surface
	log         *logger.LogEntry
	closed      bool
}

type Options struct {
	Stream     Stream
	Dispatcher *render.Dispatcher
	Log        *logger.LogEntry
}

func New(opts Options) *Session {
	disp := opts.Dispatcher
	if disp == nil {
		disp = render.NewDispatcher()
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("protocol")
	}
	return &Session{
		id:         uuid.NewString(),
		dispatcher: disp,
		stream:     opts.Stream,
		surface:    surface.Surface{}.InsertPrompt(),
		log:        log,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Surface returns the current presentation surface state.
func (s *Session) Surface() surface.Surface {
	return s.surface
}

// HandleChunk runs one pass of the inbound pipeline: reassemble → decode →
// dispatch → render → present. Malformed lines are reported and dropped;
// they never abort the stream. The rendered blocks are returned in order for
// callers that mirror the surface elsewhere; done reports whether a result
// record was observed — a successful result renders nothing, so callers
// tracking turn completion cannot rely on blocks alone.
func (s *Session) HandleChunk(chunk string) (blocks []string, done bool) {
	for _, line := range s.reassembler.Feed(chunk) {
		rec, err := protocol.Decode(line)
		if err != nil {
			// 坏记录只告警，不中断后续记录。
			s.log.WithField("line", line).Warnf("drop malformed record: %v", err)
			continue
		}
		if rec.Type() == "result" {
			done = true
		}
		block, ok := s.dispatcher.Dispatch(rec)
		if !ok {
			continue
		}
		s.surface = s.surface.AppendRendered(block)
		blocks = append(blocks, block)
	}
	return blocks, done
}

// SetInput replaces the editable prompt region with text. History is never
// touched.
func (s *Session) SetInput(text string) {
	sf := s.surface
	sf.Text = sf.Text[:sf.Boundary] + text
	sf.Cursor = len(sf.Text)
	s.surface = sf
}

// Submit consumes the surface's prompt region and sends it to the agent.
// Empty input is a no-op. On failure the surface is left untouched so the
// user's draft survives.
func (s *Session) Submit() (string, error) {
	next, input := s.surface.SubmitPrompt()
	if input == "" {
		return "", nil
	}
	if err := s.write(input); err != nil {
		return "", err
	}
	s.surface = next
	return input, nil
}

// Send is the programmatic equivalent of typing text into the prompt and
// submitting it: the message goes out on the wire and a "You:" echo lands in
// history.
func (s *Session) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := s.write(text); err != nil {
		return err
	}
	s.surface = s.surface.AppendRendered("You: " + text + "\n\n")
	return nil
}

func (s *Session) write(text string) error {
	if s.stream == nil || s.closed {
		return ErrStreamUnavailable
	}
	payload, err := protocol.EncodeUserMessage(text)
	if err != nil {
		return err
	}
	if _, err := s.stream.Write(payload); err != nil {
		return fmt.Errorf("write to agent: %w", err)
	}
	return nil
}

// AppendNote puts locally generated text into history, formatted like any
// rendered block.
func (s *Session) AppendNote(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !strings.HasSuffix(text, "\n\n") {
		text = strings.TrimRight(text, "\n") + "\n\n"
	}
	s.surface = s.surface.AppendRendered(text)
}

// ClearHistory drops the rendered transcript. The prompt region, including
// any draft input, survives.
func (s *Session) ClearHistory() {
	input := s.surface.Input()
	sf := surface.Surface{}.InsertPrompt()
	sf.Text += input
	sf.Cursor = len(sf.Text)
	s.surface = sf
}

// AttachStream replaces the agent stream after a restart. Partial-record
// state from the previous stream is discarded; rendered history stays.
func (s *Session) AttachStream(st Stream) {
	s.reassembler.Reset()
	s.stream = st
	s.closed = false
}

// Close tears the session down: the stream is closed and partial-record state
// is discarded. Rendered history may outlive the session until the caller
// discards it.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.reassembler.Reset()
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}
