package config

import (
	"strings"
	"time"
)

// Relation describes how an entity is disposed toward the player
type Relation int

const (
	RelationNeutral Relation = iota
	RelationFriendly
	RelationHostile
)

// Tier orders hostiles for attack selection (First beats High beats Normal...)
type Tier int

const (
	TierFirst Tier = iota
	TierHigh
	TierNormal
	TierLow
	TierLast
)

// Role classifies a character class for buff targeting
type Role int

const (
	RoleMelee Role = iota
	RoleCaster
)

// SelfPolicy controls whether a buff is cast on the caster
type SelfPolicy int

const (
	SelfNever SelfPolicy = iota
	SelfAlways
	SelfIfCaster // only when the caster's own class role is caster
	SelfIfMelee
)

// PartyPolicy controls which party members a buff is cast on
type PartyPolicy int

const (
	PartyNone PartyPolicy = iota
	PartyMelee
	PartyCaster
	PartyAll
)

// BuffDef describes a castable timed effect
type BuffDef struct {
	ID            int
	Name          string
	Command       string // outbound command, target name appended for party casts
	CastMessage   string // template with one {target} placeholder
	ExpireMessage string
	Duration      time.Duration
	Cost          int
	SelfPolicy    SelfPolicy
	PartyPolicy   PartyPolicy
	AutoRecast    bool
	RecastBuffer  time.Duration // renew when remaining time is at or below this
	Priority      int           // lower number = higher priority
}

// HealDef describes a healing action and the health threshold that triggers it
type HealDef struct {
	ID           int
	Name         string
	Command      string
	Cost         int
	ThresholdPct int // candidate when health percent is at or below this
	TargetParty  bool
	Priority     int
}

// CureDef describes the countermeasure for one ailment
type CureDef struct {
	ID        int
	Name      string
	Command   string
	Cost      int
	AilmentID int
	Priority  int
}

// AilmentDef describes a detectable detrimental effect
type AilmentDef struct {
	ID            int
	Name          string
	DetectMessage string // template with one {target} placeholder
	CuredMessage  string
}

// MonsterRef is one row of the monster reference table
type MonsterRef struct {
	Name     string
	Relation Relation
	Tier     Tier
}

// PlayerRef is one row of the known-player reference table
type PlayerRef struct {
	Name     string
	Relation Relation
}

// CombatSettings carries the per-character attack configuration
type CombatSettings struct {
	AttackCommand     string // melee fallback, e.g. "attack"
	AttackSpell       string // spell command, empty = melee only
	AttackSpellCost   int
	AttackSpellMinPct int // minimum resource percent to attempt the spell
	CastsPerTarget    int // spell budget per engaged target

	PreAttackSpell     string // opener cast once per engagement, e.g. a debuff
	PreAttackSpellCost int

	MultiAttackCommand    string // room sweep, e.g. "bash", used over the single-target command
	MultiAttackMinTargets int    // hostiles required before the sweep is worth it
}

// Tables bundles the read-only reference tables supplied at session start
type Tables struct {
	Buffs      []BuffDef
	Heals      []HealDef
	Cures      []CureDef
	Ailments   []AilmentDef
	Monsters   []MonsterRef
	Players    []PlayerRef
	Combat     CombatSettings
	ClassRoles map[string]Role // class name -> role, default melee
}

// MonsterFor resolves an observed room entity to a monster reference.
// Matches by exact name or by the reference name appearing inside the
// observed text, which tolerates cosmetic prefixes like "a fat".
func (t *Tables) MonsterFor(observed string) (MonsterRef, bool) {
	for _, m := range t.Monsters {
		if strings.EqualFold(m.Name, observed) {
			return m, true
		}
	}
	lower := strings.ToLower(observed)
	for _, m := range t.Monsters {
		if strings.Contains(lower, strings.ToLower(m.Name)) {
			return m, true
		}
	}
	return MonsterRef{}, false
}

// IsKnownPlayer reports whether name appears in the player reference table
func (t *Tables) IsKnownPlayer(name string) bool {
	for _, p := range t.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// RoleFor returns the buff-targeting role for a class name
func (t *Tables) RoleFor(class string) Role {
	if role, ok := t.ClassRoles[strings.ToLower(class)]; ok {
		return role
	}
	return RoleMelee
}

// BuffByID looks up a buff definition
func (t *Tables) BuffByID(id int) (BuffDef, bool) {
	for _, b := range t.Buffs {
		if b.ID == id {
			return b, true
		}
	}
	return BuffDef{}, false
}

// AilmentByID looks up an ailment definition
func (t *Tables) AilmentByID(id int) (AilmentDef, bool) {
	for _, a := range t.Ailments {
		if a.ID == id {
			return a, true
		}
	}
	return AilmentDef{}, false
}

// Tuning carries the timing and budget knobs that gate every scheduler
// decision. The tick period is deliberately configurable: the game never
// announces its cadence and observed servers differ.
type Tuning struct {
	TickPeriod           time.Duration
	CastCooldown         time.Duration // slightly longer than one tick
	MinEvalInterval      time.Duration
	PreTickGuard         time.Duration // no idle evaluation this close to a tick
	DamageClusterWindow  time.Duration
	TickTolerance        time.Duration
	PendingAttackTimeout time.Duration
	CureRetryTimeout     time.Duration
	ManaReservePct       int
	IdleEvalInterval     time.Duration
	EffectSweepInterval  time.Duration
	PollInterval         time.Duration
	StalenessWindow      time.Duration
	ReconnectPause       time.Duration
	MaxReconnects        int // 0 = unbounded
	CommandsPerSecond    float64
	CommandBurst         int
	StatusRequestCommand string // fmt template, %s = member short name
}

// DefaultTuning returns the stock knob values
func DefaultTuning() Tuning {
	return Tuning{
		TickPeriod:           5 * time.Second,
		CastCooldown:         5500 * time.Millisecond,
		MinEvalInterval:      500 * time.Millisecond,
		PreTickGuard:         1500 * time.Millisecond,
		DamageClusterWindow:  500 * time.Millisecond,
		TickTolerance:        750 * time.Millisecond,
		PendingAttackTimeout: 5 * time.Second,
		CureRetryTimeout:     10 * time.Second,
		ManaReservePct:       20,
		IdleEvalInterval:     2 * time.Second,
		EffectSweepInterval:  time.Second,
		PollInterval:         100 * time.Millisecond,
		StalenessWindow:      30 * time.Second,
		ReconnectPause:       5 * time.Second,
		MaxReconnects:        0,
		CommandsPerSecond:    4,
		CommandBurst:         2,
		StatusRequestCommand: "tele %s status",
	}
}
