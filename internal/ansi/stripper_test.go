package ansi

import "testing"

func TestStripSimpleSequence(t *testing.T) {
	got := StripString("\x1b[1;32mhello\x1b[0m world")
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestStripBellsAndNulls(t *testing.T) {
	got := StripString("ding\x07dong\x00!")
	if got != "dingdong!" {
		t.Errorf("got %q", got)
	}
}

func TestStripSequenceSplitAcrossChunks(t *testing.T) {
	s := NewStripper()
	out := s.Strip("before\x1b[1;3")
	out += s.Strip("7mafter")
	if out != "beforeafter" {
		t.Errorf("got %q", out)
	}
}

func TestStripEscapeSplitAtBracket(t *testing.T) {
	s := NewStripper()
	out := s.Strip("a\x1b")
	out += s.Strip("[0mb")
	if out != "ab" {
		t.Errorf("got %q", out)
	}
}

func TestNonCSIEscapePassesThrough(t *testing.T) {
	// A lone escape followed by a non-bracket byte is not a color code
	got := StripString("x\x1bzy")
	if got != "x\x1bzy" {
		t.Errorf("got %q", got)
	}
}

func TestResetDropsPartialSequence(t *testing.T) {
	s := NewStripper()
	s.Strip("\x1b[1;3")
	s.Reset()
	if got := s.Strip("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}
