package parser

import (
	"regexp"
	"strconv"
	"strings"

	"wisp/internal/log"
)

var (
	// [HP=412/520/MA=88/120]: with optional max values, optional resource
	// part, and an optional resting marker after the prompt
	vitalsRe = regexp.MustCompile(`\[HP=(\d+)(?:/(\d+))?(?:/(MA|KA)=(\d+)(?:/(\d+))?)?\]:?\s*(\(Resting\))?`)

	// Name: Azii RageQuit  Race: Elf  Class: Priest  Level: 42
	statNameRe = regexp.MustCompile(`^Name:\s+(\S+(?: \S+)*?)\s{2,}Race:\s+(\w+)\s{2,}Class:\s+(\w+)\s{2,}Level:\s+(\d+)`)

	// Hits: 412/520  Mana: 88/120  Exp: 1,234,567
	statVitalsRe = regexp.MustCompile(`^Hits:\s+(\d+)/(\d+)(?:\s{2,}(Mana|Kai):\s+(\d+)/(\d+))?(?:\s{2,}Exp:\s+([\d,]+))?`)

	// roster member line:
	//   Azii   Azii RageQuit   Priest   MA 73%  HP 98%  R! (leader)
	rosterLineRe = regexp.MustCompile(`^\s{2}(\w+)\s+(\w+(?: \w+)*?)\s+(\w+)\s+(?:MA (\d+)%\s+)?HP (\d+)%(?:\s+([R!]+))?(?:\s+\((\w+)\))?\s*$`)

	// Brom reports: {HP=210/390,MA=45/80}
	statusPingRe = regexp.MustCompile(`^(\w+) reports: \{HP=(\d+)/(\d+)(?:,(MA|KA)=(\d+)/(\d+))?\}$`)

	// damage-dealt combat lines feed the tick clock
	damageRe = regexp.MustCompile(` for (\d+) damage!`)

	// Obvious exits: north, east.
	exitsRe = regexp.MustCompile(`^Obvious exits: (.+?)\.?\s*$`)
)

const (
	rosterHeader    = "Your party consists of:"
	roomContentsTag = "Also here:"
	exitsTag        = "Obvious exits:"
	combatOnTag     = "*Combat Engaged*"
	combatOffTag    = "*Combat Off*"

	failFizzleMsg      = "Your spell fizzles and fails!"
	failNoManaMsg      = "You do not have enough mana to cast that!"
	failAlreadyCastMsg = "You have already cast a spell this round!"
)

// resourceKind maps a prompt tag to its resource kind
func resourceKind(tag string) ResourceKind {
	switch tag {
	case "MA":
		return ResourceMana
	case "KA":
		return ResourceKai
	}
	return ResourceNone
}

// extractVitals matches the compact status prompt
func extractVitals(line string) (VitalsEvent, bool) {
	sub := vitalsRe.FindStringSubmatch(line)
	if sub == nil {
		return VitalsEvent{}, false
	}

	ev := VitalsEvent{Resting: sub[6] != ""}
	ev.HP, _ = strconv.Atoi(sub[1])
	if sub[2] != "" {
		ev.HPMax, _ = strconv.Atoi(sub[2])
		ev.HPMaxKnown = true
	}
	if sub[3] != "" {
		ev.ResKind = resourceKind(sub[3])
		ev.Res, _ = strconv.Atoi(sub[4])
		if sub[5] != "" {
			ev.ResMax, _ = strconv.Atoi(sub[5])
			ev.ResMaxKnown = true
		}
	}
	return ev, true
}

// extractLine matches one complete line against every extractor
func (p *Parser) extractLine(line string) {
	trimmed := strings.TrimSpace(line)

	switch trimmed {
	case failFizzleMsg:
		p.emit(CastFailureEvent{Kind: FailFizzle})
		return
	case failNoManaMsg:
		p.emit(CastFailureEvent{Kind: FailNoMana})
		return
	case failAlreadyCastMsg:
		p.emit(CastFailureEvent{Kind: FailAlreadyCast})
		return
	case combatOnTag:
		p.emit(CombatEvent{Engaged: true})
		return
	case combatOffTag:
		p.emit(CombatEvent{Engaged: false})
		return
	case rosterHeader:
		p.inRoster = true
		p.rosterEntries = nil
		p.rosterSeen = make(map[string]bool)
		return
	}

	if sub := statNameRe.FindStringSubmatch(line); sub != nil {
		level, _ := strconv.Atoi(sub[4])
		p.pendingStat = &StatBlockEvent{Name: sub[1], Race: sub[2], Class: sub[3], Level: level}
		return
	}

	if sub := statVitalsRe.FindStringSubmatch(line); sub != nil && p.pendingStat != nil {
		ev := *p.pendingStat
		p.pendingStat = nil
		ev.HP, _ = strconv.Atoi(sub[1])
		ev.HPMax, _ = strconv.Atoi(sub[2])
		if sub[3] != "" {
			ev.Res, _ = strconv.Atoi(sub[4])
			ev.ResMax, _ = strconv.Atoi(sub[5])
		}
		if sub[6] != "" {
			ev.Exp, _ = strconv.ParseInt(strings.ReplaceAll(sub[6], ",", ""), 10, 64)
		}
		p.emit(ev)
		return
	}

	if sub := statusPingRe.FindStringSubmatch(trimmed); sub != nil {
		ev := StatusPingEvent{Name: sub[1]}
		ev.HP, _ = strconv.Atoi(sub[2])
		ev.HPMax, _ = strconv.Atoi(sub[3])
		if sub[4] != "" {
			ev.HasRes = true
			ev.ResKind = resourceKind(sub[4])
			ev.Res, _ = strconv.Atoi(sub[5])
			ev.ResMax, _ = strconv.Atoi(sub[6])
		}
		p.emit(ev)
		return
	}

	if idx := strings.Index(line, roomContentsTag); idx >= 0 {
		p.beginRoomLine(line[idx:])
		return
	}

	if sub := exitsRe.FindStringSubmatch(trimmed); sub != nil {
		var exits []string
		for _, e := range strings.Split(sub[1], ",") {
			if e = strings.TrimSpace(e); e != "" {
				exits = append(exits, e)
			}
		}
		p.emit(RoomHeaderEvent{Name: p.prevLine, Exits: exits})
		return
	}

	if sub := damageRe.FindStringSubmatch(line); sub != nil {
		amount, _ := strconv.Atoi(sub[1])
		p.emit(DamageEvent{Amount: amount})
		return
	}

	if match := vitalsRe.FindString(line); match != "" {
		// The terminator closing a prompt already emitted from the tail
		seen := strings.TrimRight(match, " \t") == p.promptSeen
		p.promptSeen = ""
		if !seen {
			if ev, ok := extractVitals(match); ok {
				p.emit(ev)
			}
		}
		return
	}

	p.matchTemplates(trimmed)
}

// matchTemplates runs the configurable buff/ailment message matchers
func (p *Parser) matchTemplates(line string) {
	for _, b := range p.buffCast {
		if target, ok := b.matcher.Match(line); ok {
			p.emit(BuffCastEvent{BuffID: b.id, Target: target})
			return
		}
	}
	for _, b := range p.buffExpire {
		if target, ok := b.matcher.Match(line); ok {
			p.emit(BuffExpiredEvent{BuffID: b.id, Target: target})
			return
		}
	}
	for _, a := range p.ailmentOn {
		if target, ok := a.matcher.Match(line); ok {
			p.emit(AilmentDetectedEvent{AilmentID: a.id, Target: target})
			return
		}
	}
	for _, a := range p.ailmentOff {
		if target, ok := a.matcher.Match(line); ok {
			p.emit(AilmentCuredEvent{AilmentID: a.id, Target: target})
			return
		}
	}
	// No extractor matched: a transient parse miss, never an error
}

// rosterLine tries to consume one line of a roster listing. Returns false
// when the line ends the listing.
func (p *Parser) rosterLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	sub := rosterLineRe.FindStringSubmatch(line)
	if sub == nil {
		return false
	}

	entry := RosterEntry{Short: sub[1], Full: sub[2], Class: sub[3]}
	if sub[4] != "" {
		entry.HasRes = true
		entry.ResPct, _ = strconv.Atoi(sub[4])
	}
	entry.HPPct, _ = strconv.Atoi(sub[5])
	entry.Resting = strings.Contains(sub[6], "R")
	entry.Ailing = strings.Contains(sub[6], "!")
	entry.Leader = sub[7] == "leader"

	if p.rosterSeen[entry.Short] {
		log.Warn("duplicate roster entry discarded", "name", entry.Short)
		return true
	}
	p.rosterSeen[entry.Short] = true
	p.rosterEntries = append(p.rosterEntries, entry)
	return true
}

// finishRoster emits the collected roster snapshot
func (p *Parser) finishRoster() {
	p.inRoster = false
	p.emit(PartyRosterEvent{Entries: p.rosterEntries})
	p.rosterEntries = nil
}

// beginRoomLine starts (or completes, if already terminated) a
// room-contents listing. The game hard-wraps long listings, so the text
// may span several physical lines until the terminating period.
func (p *Parser) beginRoomLine(text string) {
	p.roomBuf.Reset()
	p.roomBuf.WriteString(text)
	p.roomBuffering = true
	p.checkRoomComplete()
}

// continueRoomLine feeds one more physical line into the room buffer.
// Returns true when the line was consumed by the buffer.
func (p *Parser) continueRoomLine(line string) bool {
	trimmed := strings.TrimSpace(line)

	// A following section header ends the listing even without the period
	if strings.HasPrefix(trimmed, exitsTag) {
		p.flushRoomLine()
		return false
	}

	if p.roomBuf.Len() > 0 && trimmed != "" {
		p.roomBuf.WriteString(" ")
	}
	p.roomBuf.WriteString(trimmed)

	if p.roomBuf.Len() > roomBufferLimit {
		log.Warn("room contents buffer over limit, abandoning", "size", p.roomBuf.Len())
		p.roomBuf.Reset()
		p.roomBuffering = false
		return true
	}

	p.checkRoomComplete()
	return true
}

// checkRoomComplete emits the listing once the terminating period arrives
func (p *Parser) checkRoomComplete() {
	if strings.Contains(p.roomBuf.String(), ".") {
		p.flushRoomLine()
	}
}

// flushRoomLine emits whatever the room buffer holds
func (p *Parser) flushRoomLine() {
	raw := strings.TrimSpace(p.roomBuf.String())
	p.roomBuf.Reset()
	p.roomBuffering = false
	if raw == "" {
		return
	}

	body := strings.TrimPrefix(raw, roomContentsTag)
	body = strings.TrimSuffix(strings.TrimSpace(body), ".")

	var names []string
	for _, part := range strings.Split(body, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	p.emit(RoomContentsEvent{Raw: raw, Names: names})
}
