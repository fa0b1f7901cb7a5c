package game

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"wisp/internal/parser"
)

// SelfSnapshot is the read-only view of the player's vitals and identity
type SelfSnapshot struct {
	Name     string
	Race     string
	Class    string
	Level    int
	Exp      int64
	ExpText  string
	HP       int
	HPMax    int
	Res      int
	ResMax   int
	ResKind  parser.ResourceKind
	Resting  bool
	InCombat bool
	Training bool
}

// MemberSnapshot is the read-only view of one party member
type MemberSnapshot struct {
	Short      string
	Full       string
	Class      string
	HPPct      int
	ResPct     int
	HasRes     bool
	HP         int
	HPMax      int
	Res        int
	ResMax     int
	Exact      bool
	Resting    bool
	Ailing     bool
	Leader     bool
	LastUpdate time.Time
}

// EffectSnapshot is the read-only view of one active buff instance
type EffectSnapshot struct {
	BuffID        int
	Name          string
	Target        string // empty = self
	CastAt        time.Time
	ExpiresAt     time.Time
	Remaining     time.Duration
	RemainingText string
}

// AilmentSnapshot is the read-only view of one active ailment
type AilmentSnapshot struct {
	AilmentID     int
	Name          string
	Target        string
	DetectedAt    time.Time
	CureInitiated bool
}

// SessionStats counts what the agent has done this session
type SessionStats struct {
	LinesParsed    int64
	CommandsSent   int64
	HealsCast      int64
	CuresCast      int64
	BuffsCast      int64
	AttacksStarted int64
	Reconnects     int64
}

// remainingText renders a duration the way the status window shows it
func remainingText(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}

// expText renders experience with thousands separators
func expText(exp int64) string {
	return humanize.Comma(exp)
}
