package telnet

import (
	"wisp/internal/log"
)

// Telnet command constants
const (
	IAC  = 0xFF // Interpret As Command
	DONT = 0xFE
	DO   = 0xFD
	WONT = 0xFC
	WILL = 0xFB
	SB   = 0xFA // Subnegotiation Begin
	SE   = 0xF0 // Subnegotiation End
)

// Telnet option constants
const (
	OptEcho            = 0x01
	OptSuppressGoAhead = 0x03
	OptTerminalType    = 0x18
	OptWindowSize      = 0x1F
)

// Handler filters telnet commands out of the inbound byte stream and
// answers option negotiations. It carries state between Filter calls so
// an IAC sequence split across two reads is handled correctly.
type Handler struct {
	writer func([]byte) error

	// carry-over for sequences split across reads
	pending []byte
	inSub   bool
}

// NewHandler creates a telnet handler that sends responses through writer
func NewHandler(writer func([]byte) error) *Handler {
	return &Handler{writer: writer}
}

// SendInitialNegotiation announces basic client capabilities
func (h *Handler) SendInitialNegotiation() error {
	commands := [][]byte{
		{IAC, WILL, OptTerminalType},
		{IAC, WILL, OptWindowSize},
		{IAC, DO, OptEcho},
		{IAC, WILL, OptSuppressGoAhead},
		{IAC, DO, OptSuppressGoAhead},
	}

	for _, cmd := range commands {
		if err := h.writer(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Filter strips telnet commands from data and returns the plain bytes.
// Negotiation responses are written back through the handler's writer.
func (h *Handler) Filter(data []byte) []byte {
	buf := data
	if len(h.pending) > 0 {
		buf = append(h.pending, data...)
		h.pending = nil
	}

	result := make([]byte, 0, len(buf))
	i := 0

	for i < len(buf) {
		if h.inSub {
			// Inside subnegotiation: consume until IAC SE
			if buf[i] == IAC {
				if i+1 >= len(buf) {
					h.pending = []byte{IAC}
					return result
				}
				if buf[i+1] == SE {
					h.inSub = false
				}
				i += 2
				continue
			}
			i++
			continue
		}

		if buf[i] != IAC {
			result = append(result, buf[i])
			i++
			continue
		}

		if i+1 >= len(buf) {
			// Copy: buf may alias the caller's read buffer, which will be
			// overwritten before the next Filter call.
			h.pending = append([]byte(nil), buf[i:]...)
			return result
		}

		cmd := buf[i+1]
		switch cmd {
		case DONT, DO, WONT, WILL:
			if i+2 >= len(buf) {
				h.pending = append([]byte(nil), buf[i:]...)
				return result
			}
			h.negotiate(cmd, buf[i+2])
			i += 3

		case SB:
			h.inSub = true
			i += 2

		case IAC:
			// Escaped 0xFF data byte
			result = append(result, IAC)
			i += 2

		default:
			log.Debug("telnet: ignoring command", "cmd", cmd)
			i += 2
		}
	}

	return result
}

// Reset clears carried state (used on reconnect)
func (h *Handler) Reset() {
	h.pending = nil
	h.inSub = false
}

// negotiate answers a single option negotiation
func (h *Handler) negotiate(cmd byte, option byte) {
	var response []byte

	switch cmd {
	case DO:
		switch option {
		case OptSuppressGoAhead:
			response = []byte{IAC, WILL, OptSuppressGoAhead}
		case OptTerminalType:
			response = []byte{IAC, WILL, OptTerminalType}
		case OptWindowSize:
			response = []byte{IAC, WILL, OptWindowSize}
		default:
			response = []byte{IAC, WONT, option}
		}

	case DONT:
		response = []byte{IAC, WONT, option}

	case WILL:
		switch option {
		case OptEcho, OptSuppressGoAhead:
			response = []byte{IAC, DO, option}
		default:
			response = []byte{IAC, DONT, option}
		}

	case WONT:
		response = []byte{IAC, DONT, option}
	}

	if response != nil {
		if err := h.writer(response); err != nil {
			log.Warn("telnet: failed to send negotiation response", "error", err)
		}
	}
}
