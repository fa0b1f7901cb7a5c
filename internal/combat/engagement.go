package combat

import (
	"sort"
	"time"

	"wisp/internal/config"
	"wisp/internal/game"
	"wisp/internal/log"
	"wisp/internal/parser"
)

// State is the engagement machine's position in its cycle
type State int

const (
	StateDisengaged State = iota
	StateAttackPending
	StateEngaged
)

func (s State) String() string {
	switch s {
	case StateAttackPending:
		return "attack-pending"
	case StateEngaged:
		return "engaged"
	}
	return "disengaged"
}

// SendFunc dispatches one outbound command
type SendFunc func(cmd string)

// Machine tracks room hostiles and drives attack initiation: spell when
// the budget and resource allow, melee otherwise, with a sticky flag so a
// resource-starved spell is retried on the next tick. Runs entirely on
// the session loop.
type Machine struct {
	store  *game.Store
	tables *config.Tables
	tuning config.Tuning
	send   SendFunc

	state        State
	target       string
	pendingSince time.Time
	castsUsed    int
	usedMelee    bool // melee fallback taken only because resource was short
	preCastDone  bool // the pre-attack opener went out this engagement

	lastRoomRaw string // suppresses duplicate room-contents rebuilds
	sawContents bool   // a listing arrived since the last room header
}

// New creates an engagement machine
func New(store *game.Store, tables *config.Tables, tuning config.Tuning, send SendFunc) *Machine {
	return &Machine{store: store, tables: tables, tuning: tuning, send: send}
}

// SetTables swaps the reference tables after a reload
func (m *Machine) SetTables(tables *config.Tables) {
	m.tables = tables
}

// State returns the machine's current state
func (m *Machine) State() State {
	return m.state
}

// Target returns the entity the machine is attacking, if any
func (m *Machine) Target() string {
	return m.target
}

// OnRoomContents classifies a parsed room listing into the hostile list
// and engages if anything is attackable. Re-feeding an identical listing
// is a no-op.
func (m *Machine) OnRoomContents(ev parser.RoomContentsEvent, now time.Time) {
	if ev.Raw == m.lastRoomRaw {
		return
	}
	m.lastRoomRaw = ev.Raw
	m.sawContents = true

	m.store.SetHostiles(m.classify(ev.Names))
	m.maybeEngage(now)
}

// classify filters observed entity names down to attackable hostiles,
// ordered by priority tier with encounter order as the tie-break. The
// hostile keeps the observed text, not the canonical monster name, so
// attack commands target what the game printed.
func (m *Machine) classify(names []string) []game.Hostile {
	var hostiles []game.Hostile
	for _, name := range names {
		if m.tables.IsKnownPlayer(name) || m.store.IsSelf(name) {
			continue
		}
		ref, ok := m.tables.MonsterFor(name)
		if !ok {
			log.Debug("unrecognized room entity", "name", name)
			continue
		}
		if ref.Relation != config.RelationHostile {
			continue
		}
		hostiles = append(hostiles, game.Hostile{Name: name, Tier: ref.Tier})
	}

	sort.SliceStable(hostiles, func(i, j int) bool {
		return hostiles[i].Tier < hostiles[j].Tier
	})
	return hostiles
}

// OnRoomChange handles the exits header that closes a room print. The
// header follows the room's own contents listing, so hostiles are only
// cleared when no listing arrived: an empty room leaves the previous
// room's hostiles stale, a populated one already replaced them.
func (m *Machine) OnRoomChange() {
	if !m.sawContents {
		m.store.ClearHostiles()
	}
	m.sawContents = false
	m.lastRoomRaw = ""
}

// maybeEngage initiates an attack on the highest-priority hostile
func (m *Machine) maybeEngage(now time.Time) {
	if m.state != StateDisengaged {
		return
	}
	if m.store.Paused() || m.store.Training() {
		return
	}
	hostiles := m.store.Hostiles()
	if len(hostiles) == 0 {
		return
	}

	m.target = hostiles[0].Name
	m.castsUsed = 0
	m.sendPreAttack()
	m.attack(now)
}

// sendPreAttack casts the configured opener once per engagement, ahead of
// the first attack command, resource permitting. Skipped silently when
// the resource is short; the engagement proceeds without it.
func (m *Machine) sendPreAttack() {
	cs := m.tables.Combat
	if cs.PreAttackSpell == "" || m.preCastDone {
		return
	}
	if m.store.Self().Res < cs.PreAttackSpellCost {
		return
	}
	m.send(cs.PreAttackSpell + " " + m.target)
	m.preCastDone = true
}

// sendMelee sends the physical attack for the current room: the sweep
// command when enough hostiles stand together, the single-target command
// otherwise. Reports false when no usable melee attack is configured.
func (m *Machine) sendMelee() bool {
	cs := m.tables.Combat
	// The current target still heads the hostile list here; it only
	// leaves on engagement confirmation.
	if cs.MultiAttackCommand != "" && len(m.store.Hostiles()) >= cs.MultiAttackMinTargets {
		m.send(cs.MultiAttackCommand)
		return true
	}
	if cs.AttackCommand == "" {
		log.Warn("no melee attack configured, skipping", "target", m.target)
		return false
	}
	m.send(cs.AttackCommand + " " + m.target)
	return true
}

// attack sends one attack command: the configured spell when budget and
// resource permit, the melee command otherwise. A spell skipped purely
// for lack of resource (budget still open) sets the melee-fallback flag
// so the next tick retries the spell. With nothing usable configured the
// machine logs and stays disengaged.
func (m *Machine) attack(now time.Time) {
	cs := m.tables.Combat
	self := m.store.Self()
	sent := false

	if cs.AttackSpell != "" && m.castsUsed < cs.CastsPerTarget {
		pctOK := self.ResMax > 0 && self.Res*100/self.ResMax >= cs.AttackSpellMinPct
		if pctOK && self.Res >= cs.AttackSpellCost {
			m.send(cs.AttackSpell + " " + m.target)
			m.castsUsed++
			sent = true
		} else if m.sendMelee() {
			m.usedMelee = true
			sent = true
		}
	} else {
		sent = m.sendMelee()
	}

	if !sent {
		m.target = ""
		return
	}

	m.state = StateAttackPending
	m.pendingSince = now
	m.store.CountAction("attack")
	log.Info("attack initiated", "target", m.target, "state", m.state.String())
}

// OnTick resets the melee-fallback flag; while engaged with spell budget
// remaining it re-attempts the spell if resources recovered.
func (m *Machine) OnTick(now time.Time) {
	retry := m.usedMelee
	m.usedMelee = false

	if !retry || m.state != StateEngaged {
		return
	}
	cs := m.tables.Combat
	if cs.AttackSpell == "" || m.castsUsed >= cs.CastsPerTarget {
		return
	}
	self := m.store.Self()
	pctOK := self.ResMax > 0 && self.Res*100/self.ResMax >= cs.AttackSpellMinPct
	if pctOK && self.Res >= cs.AttackSpellCost {
		m.send(cs.AttackSpell + " " + m.target)
		m.castsUsed++
	} else {
		m.usedMelee = true
	}
}

// Poll recovers a pending attack whose confirmation never arrived
func (m *Machine) Poll(now time.Time) {
	if m.state != StateAttackPending {
		return
	}
	if now.Sub(m.pendingSince) < m.tuning.PendingAttackTimeout {
		return
	}
	log.Warn("attack confirmation timed out, retrying", "target", m.target)
	m.state = StateDisengaged
	m.target = ""
	m.maybeEngage(now)
}

// OnEngaged handles the explicit engagement-confirmed event. The current
// target leaves the head of the hostile list; a fresh room parse re-adds
// it if it is still standing.
func (m *Machine) OnEngaged(now time.Time) {
	m.state = StateEngaged
	m.store.SetCombat(true)
	m.store.PopHostile()
	log.Info("combat engaged", "target", m.target)
}

// OnDisengaged handles the explicit disengage event: round state clears
// and an empty line is sent so the game reprints the room and the next
// contents parse can re-engage any remaining hostiles.
func (m *Machine) OnDisengaged() {
	m.state = StateDisengaged
	m.target = ""
	m.castsUsed = 0
	m.usedMelee = false
	m.preCastDone = false
	m.lastRoomRaw = ""
	m.store.SetCombat(false)
	m.store.ClearHostiles()
	m.send("")
	log.Info("combat disengaged, probing room")
}

// ResetSession clears all sticky combat state after a reconnect
func (m *Machine) ResetSession() {
	m.state = StateDisengaged
	m.target = ""
	m.castsUsed = 0
	m.usedMelee = false
	m.preCastDone = false
	m.pendingSince = time.Time{}
	m.lastRoomRaw = ""
	m.sawContents = false
}
