package telnet

import (
	"bytes"
	"testing"
)

type writerSink struct {
	writes [][]byte
}

func (w *writerSink) write(b []byte) error {
	w.writes = append(w.writes, append([]byte(nil), b...))
	return nil
}

func TestFilterPlainData(t *testing.T) {
	h := NewHandler((&writerSink{}).write)
	got := h.Filter([]byte("hello world"))
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestFilterStripsNegotiation(t *testing.T) {
	sink := &writerSink{}
	h := NewHandler(sink.write)

	data := append([]byte{IAC, DO, OptSuppressGoAhead}, []byte("text")...)
	got := h.Filter(data)

	if string(got) != "text" {
		t.Errorf("got %q", got)
	}
	if len(sink.writes) != 1 || !bytes.Equal(sink.writes[0], []byte{IAC, WILL, OptSuppressGoAhead}) {
		t.Errorf("bad negotiation response: %v", sink.writes)
	}
}

func TestFilterRefusesUnknownOption(t *testing.T) {
	sink := &writerSink{}
	h := NewHandler(sink.write)

	h.Filter([]byte{IAC, DO, 0x42})
	if len(sink.writes) != 1 || !bytes.Equal(sink.writes[0], []byte{IAC, WONT, 0x42}) {
		t.Errorf("unknown DO should answer WONT: %v", sink.writes)
	}

	h.Filter([]byte{IAC, WILL, 0x42})
	if len(sink.writes) != 2 || !bytes.Equal(sink.writes[1], []byte{IAC, DONT, 0x42}) {
		t.Errorf("unknown WILL should answer DONT: %v", sink.writes)
	}
}

func TestFilterSequenceSplitAcrossReads(t *testing.T) {
	sink := &writerSink{}
	h := NewHandler(sink.write)

	got := h.Filter([]byte{'a', IAC})
	got = append(got, h.Filter([]byte{DO, OptEcho, 'b'})...)

	if string(got) != "ab" {
		t.Errorf("got %q", got)
	}
	if len(sink.writes) != 1 {
		t.Errorf("expected one negotiation response, got %d", len(sink.writes))
	}
}

func TestFilterSplitWithReusedReadBuffer(t *testing.T) {
	sink := &writerSink{}
	h := NewHandler(sink.write)

	// The session read loop reuses one buffer for every conn.Read, so the
	// bytes behind a chunk change between Filter calls. Carried state must
	// not alias them.
	buffer := make([]byte, 8)

	n := copy(buffer, []byte{'a', IAC})
	got := string(h.Filter(buffer[:n]))

	n = copy(buffer, []byte{DO, OptEcho, 'b'})
	got += string(h.Filter(buffer[:n]))

	if got != "ab" {
		t.Errorf("got %q", got)
	}
	if len(sink.writes) != 1 {
		t.Errorf("expected one negotiation response, got %v", sink.writes)
	}
}

func TestFilterSplitAfterCommand(t *testing.T) {
	h := NewHandler((&writerSink{}).write)

	got := h.Filter([]byte{'a', IAC, DO})
	got = append(got, h.Filter([]byte{OptEcho, 'b'})...)

	if string(got) != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestFilterEscapedIAC(t *testing.T) {
	h := NewHandler((&writerSink{}).write)

	got := h.Filter([]byte{'x', IAC, IAC, 'y'})
	if !bytes.Equal(got, []byte{'x', IAC, 'y'}) {
		t.Errorf("got %v", got)
	}
}

func TestFilterSubnegotiation(t *testing.T) {
	h := NewHandler((&writerSink{}).write)

	data := []byte{'a', IAC, SB, OptTerminalType, 1, 2, 3, IAC, SE, 'b'}
	got := h.Filter(data)
	if string(got) != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestFilterSubnegotiationSplit(t *testing.T) {
	h := NewHandler((&writerSink{}).write)

	got := h.Filter([]byte{IAC, SB, OptWindowSize, 0, 80})
	got = append(got, h.Filter([]byte{0, 24, IAC, SE, 'z'})...)
	if string(got) != "z" {
		t.Errorf("got %q", got)
	}
}

func TestResetClearsCarriedState(t *testing.T) {
	h := NewHandler((&writerSink{}).write)

	h.Filter([]byte{IAC, SB})
	h.Reset()

	got := h.Filter([]byte("clean"))
	if string(got) != "clean" {
		t.Errorf("got %q", got)
	}
}
