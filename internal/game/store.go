package game

import (
	"sync"
	"time"

	"wisp/internal/config"
	"wisp/internal/log"
	"wisp/internal/parser"
)

// Hostile is one attackable entity in the current room, carrying the
// observed text (not the canonical monster name) so commands target what
// the game actually printed.
type Hostile struct {
	Name string
	Tier config.Tier
}

// Store is the single owner of all in-memory game state. Extractor events
// and scheduler bookkeeping mutate it through these methods only; copies,
// never references, leave the store. Notifications fire after the mutation
// completes.
type Store struct {
	mu     sync.RWMutex
	tables *config.Tables
	bus    *Bus

	// self identity
	name  string
	race  string
	class string
	level int
	exp   int64

	// self vitals and flags
	hp, hpMax   int
	res, resMax int
	resKind     parser.ResourceKind
	resting     bool
	inCombat    bool
	training    bool
	paused      bool
	seenPrompt  bool

	party    map[string]*member
	effects  []effect
	ailments []ailment
	hostiles []Hostile

	stats SessionStats
}

type member struct {
	short, full, class string
	hpPct, resPct      int
	hasRes             bool
	hp, hpMax          int
	res, resMax        int
	exact              bool
	resting            bool
	ailing             bool
	leader             bool
	lastUpdate         time.Time
	missed             int
}

type effect struct {
	buffID    int
	target    string // empty = self
	castAt    time.Time
	expiresAt time.Time
}

type ailment struct {
	ailmentID   int
	target      string
	detectedAt  time.Time
	cureStarted time.Time // zero = no cure in flight
}

// NewStore creates a state store bound to reference tables and a bus
func NewStore(tables *config.Tables, bus *Bus) *Store {
	return &Store{
		tables: tables,
		bus:    bus,
		party:  make(map[string]*member),
		// automation starts suppressed until the first prompt proves we
		// are in the game proper, not a menu
		training: true,
	}
}

// SetTables swaps the reference tables after a reload
func (s *Store) SetTables(tables *config.Tables) {
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
}

// ApplyVitals applies a status-prompt event. A max value is only ever
// raised by a bare current value, never lowered. The first prompt of a
// session clears the training/menu suppression flag.
func (s *Store) ApplyVitals(ev parser.VitalsEvent) {
	s.mu.Lock()
	s.hp = ev.HP
	if ev.HPMaxKnown {
		s.hpMax = ev.HPMax
	} else if ev.HP > s.hpMax {
		s.hpMax = ev.HP
	}
	if ev.ResKind != parser.ResourceNone {
		s.resKind = ev.ResKind
		s.res = ev.Res
		if ev.ResMaxKnown {
			s.resMax = ev.ResMax
		} else if ev.Res > s.resMax {
			s.resMax = ev.Res
		}
	}
	s.resting = ev.Resting
	clearedTraining := false
	if !s.seenPrompt {
		s.seenPrompt = true
		if s.training {
			s.training = false
			clearedTraining = true
		}
	}
	snap := s.selfSnapshotLocked()
	s.mu.Unlock()

	if clearedTraining {
		log.Info("first status prompt seen, automation enabled")
	}
	s.bus.Fire(EventVitals, snap)
}

// ApplyStatBlock applies a character-sheet event, establishing identity
func (s *Store) ApplyStatBlock(ev parser.StatBlockEvent) {
	s.mu.Lock()
	s.name = ev.Name
	s.race = ev.Race
	s.class = ev.Class
	s.level = ev.Level
	if ev.HPMax > 0 {
		s.hp, s.hpMax = ev.HP, ev.HPMax
	}
	if ev.ResMax > 0 {
		s.res, s.resMax = ev.Res, ev.ResMax
	}
	if ev.Exp > 0 {
		s.exp = ev.Exp
	}
	snap := s.selfSnapshotLocked()
	s.mu.Unlock()

	log.Info("identity established", "name", ev.Name, "class", ev.Class, "level", ev.Level)
	s.bus.Fire(EventIdentity, snap)
}

// SetCombat flips the in-combat flag
func (s *Store) SetCombat(engaged bool) {
	s.mu.Lock()
	changed := s.inCombat != engaged
	s.inCombat = engaged
	snap := s.selfSnapshotLocked()
	s.mu.Unlock()

	if changed {
		s.bus.Fire(EventCombat, snap)
	}
}

// SetTraining sets the in-menu/training suppression flag
func (s *Store) SetTraining(training bool) {
	s.mu.Lock()
	s.training = training
	s.mu.Unlock()
}

// SetPaused pauses or resumes all automation
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	if paused {
		s.bus.Fire(EventStatus, "automation paused")
	} else {
		s.bus.Fire(EventStatus, "automation resumed")
	}
}

// SetHostiles replaces the room hostile list
func (s *Store) SetHostiles(hostiles []Hostile) {
	s.mu.Lock()
	s.hostiles = append([]Hostile(nil), hostiles...)
	names := s.hostileNamesLocked()
	s.mu.Unlock()
	s.bus.Fire(EventHostiles, names)
}

// ClearHostiles empties the room hostile list (room change or refresh)
func (s *Store) ClearHostiles() {
	s.mu.Lock()
	had := len(s.hostiles) > 0
	s.hostiles = nil
	s.mu.Unlock()
	if had {
		s.bus.Fire(EventHostiles, []string{})
	}
}

// PopHostile removes and returns the head of the hostile list
func (s *Store) PopHostile() (Hostile, bool) {
	s.mu.Lock()
	if len(s.hostiles) == 0 {
		s.mu.Unlock()
		return Hostile{}, false
	}
	h := s.hostiles[0]
	s.hostiles = s.hostiles[1:]
	names := s.hostileNamesLocked()
	s.mu.Unlock()
	s.bus.Fire(EventHostiles, names)
	return h, true
}

// Hostiles returns a copy of the current hostile list
func (s *Store) Hostiles() []Hostile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Hostile(nil), s.hostiles...)
}

func (s *Store) hostileNamesLocked() []string {
	names := make([]string, len(s.hostiles))
	for i, h := range s.hostiles {
		names[i] = h.Name
	}
	return names
}

// Self returns the current self snapshot
func (s *Store) Self() SelfSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfSnapshotLocked()
}

func (s *Store) selfSnapshotLocked() SelfSnapshot {
	return SelfSnapshot{
		Name:     s.name,
		Race:     s.race,
		Class:    s.class,
		Level:    s.level,
		Exp:      s.exp,
		ExpText:  expText(s.exp),
		HP:       s.hp,
		HPMax:    s.hpMax,
		Res:      s.res,
		ResMax:   s.resMax,
		ResKind:  s.resKind,
		Resting:  s.resting,
		InCombat: s.inCombat,
		Training: s.training,
	}
}

// PlayerName returns the established player name ("" until known)
func (s *Store) PlayerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// ResourcePct returns the secondary resource as a percentage of max
func (s *Store) ResourcePct() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.resMax <= 0 {
		return 0
	}
	return s.res * 100 / s.resMax
}

// Paused reports whether automation is globally paused
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Training reports whether the in-menu suppression flag is set
func (s *Store) Training() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.training
}

// InCombat reports the combat engagement flag
func (s *Store) InCombat() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inCombat
}

// IsSelf resolves a captured message target against the player name
func (s *Store) IsSelf(name string) bool {
	return parser.ResolveSelf(name, s.PlayerName())
}

// Stats returns a copy of the session counters
func (s *Store) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// CountLine bumps the parsed-line counter
func (s *Store) CountLine() {
	s.mu.Lock()
	s.stats.LinesParsed++
	s.mu.Unlock()
}

// CountCommand bumps the sent-command counter
func (s *Store) CountCommand() {
	s.mu.Lock()
	s.stats.CommandsSent++
	s.mu.Unlock()
}

// CountAction bumps one of the dispatched-action counters
func (s *Store) CountAction(kind string) {
	s.mu.Lock()
	switch kind {
	case "heal":
		s.stats.HealsCast++
	case "cure":
		s.stats.CuresCast++
	case "buff":
		s.stats.BuffsCast++
	case "attack":
		s.stats.AttacksStarted++
	}
	s.mu.Unlock()
}

// CountReconnect bumps the reconnect counter
func (s *Store) CountReconnect() {
	s.mu.Lock()
	s.stats.Reconnects++
	s.mu.Unlock()
}

// ResetSession clears per-session sticky state after a reconnect. The
// party, effects, and identity survive; combat, hostiles, and the
// first-prompt latch do not.
func (s *Store) ResetSession() {
	s.mu.Lock()
	s.inCombat = false
	s.hostiles = nil
	s.seenPrompt = false
	s.training = true
	s.mu.Unlock()
	s.bus.Fire(EventStatus, "session state reset")
}
