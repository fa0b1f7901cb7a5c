package ansi

import (
	"strings"
)

// stripper states
const (
	stateText = iota
	stateEscape
	stateCSI
)

// Stripper removes ANSI escape sequences from streaming text.
// It keeps state between chunks so a sequence split across two reads
// is still removed cleanly.
type Stripper struct {
	state   int
	pending strings.Builder // partial escape sequence carried across chunks
}

// NewStripper creates a new streaming ANSI stripper
func NewStripper() *Stripper {
	return &Stripper{state: stateText}
}

// Strip processes a chunk of text and returns it with escape sequences,
// bells, and nulls removed.
func (s *Stripper) Strip(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	for _, ch := range text {
		switch s.state {
		case stateText:
			switch ch {
			case '\x1b':
				s.state = stateEscape
				s.pending.Reset()
				s.pending.WriteRune(ch)
			case '\x07', '\x00':
				// bells and nulls never reach the parser
			default:
				out.WriteRune(ch)
			}

		case stateEscape:
			if ch == '[' {
				s.state = stateCSI
				s.pending.WriteRune(ch)
			} else {
				// Not a CSI sequence; emit what we swallowed
				out.WriteString(s.pending.String())
				out.WriteRune(ch)
				s.pending.Reset()
				s.state = stateText
			}

		case stateCSI:
			// Parameter and intermediate bytes accumulate; a final byte
			// in 0x40-0x7E terminates the sequence.
			if ch >= '@' && ch <= '~' {
				s.pending.Reset()
				s.state = stateText
			} else {
				s.pending.WriteRune(ch)
			}
		}
	}

	return out.String()
}

// Reset clears carried state (used on reconnect)
func (s *Stripper) Reset() {
	s.state = stateText
	s.pending.Reset()
}

// StripString strips a complete string in one shot
func StripString(text string) string {
	return NewStripper().Strip(text)
}
