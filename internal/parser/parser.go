package parser

import (
	"strings"

	"wisp/internal/ansi"
	"wisp/internal/config"
)

// roomBufferLimit caps the reassembly buffer for a split room-contents
// line; past this the line is abandoned rather than retried forever.
const roomBufferLimit = 512

// EventFunc receives every extracted event in arrival order
type EventFunc func(Event)

// Parser reassembles decoded text chunks into logical lines and runs the
// event extractors over them. It owns all buffering state; it never sends
// commands.
type Parser struct {
	currentLine string
	stripper    *ansi.Stripper
	emit        EventFunc
	onLine      func(string) // optional hook, sees every complete line

	// compiled message matchers, rebuilt when tables reload
	buffCast   []templateBinding
	buffExpire []templateBinding
	ailmentOn  []templateBinding
	ailmentOff []templateBinding

	// roster collection mode
	inRoster      bool
	rosterEntries []RosterEntry
	rosterSeen    map[string]bool

	// split room-contents reassembly
	roomBuffering bool
	roomBuf       strings.Builder

	// stat block spans two lines
	pendingStat *StatBlockEvent

	// previous non-empty line, used as the room title for the exits line
	prevLine string

	// last prompt emitted from a partial tail, so the unchanged tail on
	// later chunks and the terminator do not repeat the event
	promptSeen string
}

// templateBinding ties a compiled template to the definition it came from
type templateBinding struct {
	id      int
	matcher *TemplateMatcher
}

// New creates a parser bound to the given reference tables and event sink
func New(tables *config.Tables, emit EventFunc) *Parser {
	p := &Parser{
		stripper:   ansi.NewStripper(),
		emit:       emit,
		rosterSeen: make(map[string]bool),
	}
	p.SetTables(tables)
	return p
}

// SetLineHook registers a callback invoked for every complete line
func (p *Parser) SetLineHook(hook func(string)) {
	p.onLine = hook
}

// SetTables recompiles the configurable message matchers
func (p *Parser) SetTables(tables *config.Tables) {
	p.buffCast = p.buffCast[:0]
	p.buffExpire = p.buffExpire[:0]
	p.ailmentOn = p.ailmentOn[:0]
	p.ailmentOff = p.ailmentOff[:0]
	if tables == nil {
		return
	}
	for _, b := range tables.Buffs {
		if b.CastMessage != "" {
			p.buffCast = append(p.buffCast, templateBinding{b.ID, CompileTemplate(b.CastMessage)})
		}
		if b.ExpireMessage != "" {
			p.buffExpire = append(p.buffExpire, templateBinding{b.ID, CompileTemplate(b.ExpireMessage)})
		}
	}
	for _, a := range tables.Ailments {
		if a.DetectMessage != "" {
			p.ailmentOn = append(p.ailmentOn, templateBinding{a.ID, CompileTemplate(a.DetectMessage)})
		}
		if a.CuredMessage != "" {
			p.ailmentOff = append(p.ailmentOff, templateBinding{a.ID, CompileTemplate(a.CuredMessage)})
		}
	}
}

// ProcessChunk accepts a raw decoded chunk (arbitrary byte-aligned split),
// strips display-control sequences, and processes every complete line.
// The partial tail is re-scanned for prompts, which arrive without a
// line terminator.
func (p *Parser) ProcessChunk(data string) {
	s := p.stripper.Strip(data)

	// Only carriage returns terminate lines; linefeeds are noise
	s = strings.ReplaceAll(s, "\n", "")

	line := p.currentLine + s
	for {
		crPos := strings.IndexRune(line, '\r')
		if crPos == -1 {
			break
		}
		complete := line[:crPos]
		p.processLine(complete)
		line = line[crPos+1:]
	}
	p.currentLine = line

	// Prompts never end in a newline; scan the partial tail too
	p.processPrompt(p.currentLine)
}

// Reset clears all buffering state (used on reconnect)
func (p *Parser) Reset() {
	p.currentLine = ""
	p.stripper.Reset()
	p.inRoster = false
	p.rosterEntries = nil
	p.rosterSeen = make(map[string]bool)
	p.roomBuffering = false
	p.roomBuf.Reset()
	p.pendingStat = nil
	p.prevLine = ""
	p.promptSeen = ""
}

// processLine runs the extractors over one complete logical line
func (p *Parser) processLine(line string) {
	if p.onLine != nil {
		p.onLine(line)
	}

	if p.inRoster {
		if p.rosterLine(line) {
			return
		}
		p.finishRoster()
		// fall through: the line that ended the roster still matters
	}

	if p.roomBuffering {
		if p.continueRoomLine(line) {
			return
		}
	}

	p.extractLine(line)

	if strings.TrimSpace(line) != "" {
		p.prevLine = strings.TrimSpace(line)
	}
}

// processPrompt scans a partial line for the status prompt, which the
// game emits without a terminator. An already-emitted prompt still
// sitting in the tail is not repeated.
func (p *Parser) processPrompt(tail string) {
	// Trailing whitespace is inside the match; trim it so a space after
	// the prompt does not read as a new one
	match := strings.TrimRight(vitalsRe.FindString(tail), " \t")
	if match == "" || match == p.promptSeen {
		return
	}
	p.promptSeen = match
	if ev, ok := extractVitals(match); ok {
		p.emit(ev)
	}
}
