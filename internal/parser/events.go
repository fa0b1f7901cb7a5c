package parser

// ResourceKind distinguishes the secondary resource reported by the game
type ResourceKind int

const (
	ResourceNone ResourceKind = iota
	ResourceMana
	ResourceKai
)

// Event is any typed event produced by the extractors
type Event interface {
	event()
}

// VitalsEvent is extracted from the compact status prompt
type VitalsEvent struct {
	HP          int
	HPMax       int
	HPMaxKnown  bool
	Res         int
	ResMax      int
	ResMaxKnown bool
	ResKind     ResourceKind
	Resting     bool
}

// StatBlockEvent is extracted from the multi-line character sheet
type StatBlockEvent struct {
	Name   string
	Race   string
	Class  string
	Level  int
	HP     int
	HPMax  int
	Res    int
	ResMax int
	Exp    int64
}

// RosterEntry is one member line of a party roster listing
type RosterEntry struct {
	Short   string
	Full    string
	Class   string
	ResPct  int
	HasRes  bool
	HPPct   int
	Resting bool
	Ailing  bool
	Leader  bool
}

// PartyRosterEvent is a complete roster snapshot
type PartyRosterEvent struct {
	Entries []RosterEntry
}

// StatusPingEvent is an out-of-band exact-vitals report from a party member
type StatusPingEvent struct {
	Name    string
	HP      int
	HPMax   int
	Res     int
	ResMax  int
	HasRes  bool
	ResKind ResourceKind
}

// CastFailureKind classifies the three same-round cast rejections
type CastFailureKind int

const (
	FailFizzle CastFailureKind = iota
	FailNoMana
	FailAlreadyCast
)

// CastFailureEvent blocks further casting until the next tick
type CastFailureEvent struct {
	Kind CastFailureKind
}

// BuffCastEvent is a matched buff cast-success message
type BuffCastEvent struct {
	BuffID int
	Target string // raw captured text, self-resolution happens downstream
}

// BuffExpiredEvent is a matched buff wear-off message
type BuffExpiredEvent struct {
	BuffID int
	Target string
}

// AilmentDetectedEvent is a matched ailment onset message
type AilmentDetectedEvent struct {
	AilmentID int
	Target    string
}

// AilmentCuredEvent is a matched cure-success message
type AilmentCuredEvent struct {
	AilmentID int
	Target    string
}

// CombatEvent marks an explicit engage/disengage transition
type CombatEvent struct {
	Engaged bool
}

// RoomContentsEvent is a reassembled "Also here:" listing
type RoomContentsEvent struct {
	Raw   string
	Names []string
}

// DamageEvent is one damage-dealt combat line (feeds the tick clock)
type DamageEvent struct {
	Amount int
}

// RoomHeaderEvent marks a room description (exits line); clears hostiles
type RoomHeaderEvent struct {
	Name  string
	Exits []string
}

func (VitalsEvent) event()          {}
func (StatBlockEvent) event()       {}
func (PartyRosterEvent) event()     {}
func (StatusPingEvent) event()      {}
func (CastFailureEvent) event()     {}
func (BuffCastEvent) event()        {}
func (BuffExpiredEvent) event()     {}
func (AilmentDetectedEvent) event() {}
func (AilmentCuredEvent) event()    {}
func (CombatEvent) event()          {}
func (RoomContentsEvent) event()    {}
func (DamageEvent) event()          {}
func (RoomHeaderEvent) event()      {}
