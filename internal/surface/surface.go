package surface

import "strings"

// Marker is the literal prompt token at the head of the editable region.
const Marker = "> "

// Surface models the transcript as an ordered text container split into an
// immutable history zone and a mutable prompt suffix. Boundary is the first
// editable index; Cursor is the externally observable cursor position. All
// operations are pure transformations of the (Text, Boundary, Cursor) triple,
// so the state machine is testable without a real UI surface.
//
// Invariant: Boundary never moves backwards relative to already-written
// history, and always points at or beyond the end of history.
type Surface struct {
	Text     string
	Boundary int
	Cursor   int
}

// markerStart 返回提示符行的起点；没有提示符时即为文本末尾。
func (s Surface) markerStart() int {
	start := s.Boundary - len(Marker)
	if start >= 0 && s.Text[start:s.Boundary] == Marker {
		return start
	}
	return s.Boundary
}

func (s Surface) promptAtTail() bool {
	return s.Boundary == len(s.Text) && strings.HasSuffix(s.Text, Marker)
}

// InsertPrompt appends a prompt marker at the tail and moves the editable
// boundary to just after it. Everything strictly before the marker becomes
// history. Repeated calls with no intervening writes re-mark the same
// boundary.
func (s Surface) InsertPrompt() Surface {
	if s.promptAtTail() {
		return s
	}
	if s.Text != "" && !strings.HasSuffix(s.Text, "\n") {
		s.Text += "\n"
	}
	s.Text += Marker
	s.Boundary = len(s.Text)
	s.Cursor = len(s.Text)
	return s
}

// AppendRendered inserts text above the prompt line, leaving the prompt's own
// content intact. The cursor follows the insertion only when it was already at
// the absolute end; otherwise it stays at its absolute position so the
// viewport is not yanked away mid-edit.
func (s Surface) AppendRendered(text string) Surface {
	if text == "" {
		return s
	}
	at := s.markerStart()
	atEnd := s.Cursor == len(s.Text)
	s.Text = s.Text[:at] + text + s.Text[at:]
	s.Boundary += len(text)
	if atEnd {
		s.Cursor = len(s.Text)
	}
	return s
}

// SubmitPrompt consumes the editable region. Empty (or whitespace-only) input
// is a no-op. Otherwise the prompt line is deleted, a "You:" echo is appended
// to history, a fresh prompt is inserted, and the trimmed input is returned
// for the outbound encoder.
func (s Surface) SubmitPrompt() (Surface, string) {
	input := strings.TrimSpace(s.Input())
	if input == "" {
		return s, ""
	}
	s.Text = s.Text[:s.markerStart()]
	s.Text += "You: " + input + "\n\n"
	s.Boundary = len(s.Text)
	s.Cursor = len(s.Text)
	return s.InsertPrompt(), input
}

// Input returns the editable region's current content.
func (s Surface) Input() string {
	if s.Boundary >= len(s.Text) {
		return ""
	}
	return s.Text[s.Boundary:]
}

// History returns the immutable zone, excluding the prompt line.
func (s Surface) History() string {
	return s.Text[:s.markerStart()]
}
