package scheduler

import (
	"sort"
	"time"

	"wisp/internal/config"
	"wisp/internal/game"
	"wisp/internal/log"
	"wisp/internal/tick"
)

// SendFunc dispatches one outbound command (fire-and-forget)
type SendFunc func(cmd string)

// Scheduler arbitrates between competing automated actions under the
// shared mana/cooldown budget. Evaluation order is strict and
// short-circuits: heal, then cure, then buff. Attacks are the combat
// machine's business, not the scheduler's.
//
// The scheduler runs entirely on the session loop; its fields are not
// shared across goroutines.
type Scheduler struct {
	store  *game.Store
	tables *config.Tables
	tuning config.Tuning
	clock  *tick.Clock
	send   SendFunc

	castBlocked  bool // set by a same-round cast failure, cleared by the next tick
	lastEval     time.Time
	lastDispatch time.Time
}

// New creates a scheduler wired to its collaborators
func New(store *game.Store, tables *config.Tables, tuning config.Tuning, clock *tick.Clock, send SendFunc) *Scheduler {
	return &Scheduler{
		store:  store,
		tables: tables,
		tuning: tuning,
		clock:  clock,
		send:   send,
	}
}

// SetTables swaps the reference tables after a reload
func (s *Scheduler) SetTables(tables *config.Tables) {
	s.tables = tables
}

// OnTick handles a tick-elapsed notification: the same-round cast block
// lifts and a fresh evaluation runs.
func (s *Scheduler) OnTick(now time.Time) {
	s.castBlocked = false
	s.Evaluate(now)
}

// OnIdleTimer handles the out-of-combat periodic re-evaluation. Skipped
// when the next predicted tick is too close, to avoid casting into it.
func (s *Scheduler) OnIdleTimer(now time.Time) {
	if s.store.InCombat() {
		return
	}
	if next, ok := s.clock.NextTick(); ok && next.Sub(now) >= 0 && next.Sub(now) <= s.tuning.PreTickGuard {
		return
	}
	s.Evaluate(now)
}

// OnCastFailure blocks further scheduling until the next tick
func (s *Scheduler) OnCastFailure() {
	s.castBlocked = true
}

// Blocked reports whether a same-round failure is holding casts
func (s *Scheduler) Blocked() bool {
	return s.castBlocked
}

// ResetSession clears sticky per-session state after a reconnect
func (s *Scheduler) ResetSession() {
	s.castBlocked = false
	s.lastEval = time.Time{}
	s.lastDispatch = time.Time{}
}

// Evaluate runs one pass over the candidate actions and dispatches at
// most one command.
func (s *Scheduler) Evaluate(now time.Time) {
	if s.store.Paused() || s.store.Training() || s.castBlocked {
		return
	}
	if !s.lastEval.IsZero() && now.Sub(s.lastEval) < s.tuning.MinEvalInterval {
		return
	}
	s.lastEval = now
	if !s.lastDispatch.IsZero() && now.Sub(s.lastDispatch) < s.tuning.CastCooldown {
		return
	}

	if s.tryHeal(now) {
		return
	}
	if s.tryCure(now) {
		return
	}
	s.tryBuff(now)
}

// dispatch emits exactly one outbound command and stamps the cooldown
func (s *Scheduler) dispatch(now time.Time, cmd, kind string) {
	log.Info("dispatching action", "kind", kind, "command", cmd)
	s.send(cmd)
	s.lastDispatch = now
	s.store.CountAction(kind)
}

// tryHeal scans heal definitions against self and party health. Heals
// ignore the mana reserve floor: only the spell's own cost gates them.
func (s *Scheduler) tryHeal(now time.Time) bool {
	self := s.store.Self()

	for _, heal := range s.tables.Heals {
		if heal.Cost > self.Res {
			continue
		}

		if self.HPMax > 0 && self.HP*100/self.HPMax <= heal.ThresholdPct {
			s.dispatch(now, heal.Command, "heal")
			return true
		}

		if !heal.TargetParty {
			continue
		}
		members := s.store.Party()
		sort.Slice(members, func(i, j int) bool { return members[i].HPPct < members[j].HPPct })
		for _, m := range members {
			if s.store.IsSelf(m.Full) || s.store.IsSelf(m.Short) {
				continue
			}
			if m.HPPct <= heal.ThresholdPct {
				s.dispatch(now, heal.Command+" "+m.Short, "heal")
				return true
			}
		}
	}
	return false
}

// tryCure scans outstanding ailments for one with an affordable cure.
// Like heals, cures ignore the reserve floor.
func (s *Scheduler) tryCure(now time.Time) bool {
	self := s.store.Self()

	for _, ail := range s.store.CurableAilments() {
		cure, ok := s.cureFor(ail.AilmentID)
		if !ok {
			log.Warn("no cure configured for ailment", "ailment", ail.Name)
			continue
		}
		if cure.Cost > self.Res {
			continue
		}

		cmd := cure.Command
		if ail.Target != "" && !s.store.IsSelf(ail.Target) {
			cmd += " " + ail.Target
		}
		s.dispatch(now, cmd, "cure")
		s.store.MarkCureInitiated(ail.AilmentID, ail.Target, now)
		return true
	}
	return false
}

// cureFor finds the highest-priority cure for an ailment
func (s *Scheduler) cureFor(ailmentID int) (config.CureDef, bool) {
	best := config.CureDef{}
	found := false
	for _, c := range s.tables.Cures {
		if c.AilmentID != ailmentID {
			continue
		}
		if !found || c.Priority < best.Priority {
			best = c
			found = true
		}
	}
	return best, found
}

// buffCandidate is one (buff, target) pair needing a cast
type buffCandidate struct {
	def    config.BuffDef
	target string // empty = self
}

// tryBuff computes the (buff, target) pairs needing a recast, orders them
// by priority with self before party at equal priority, and casts the
// first one the caster can afford. Unaffordable candidates are skipped in
// this pass, not deferred.
func (s *Scheduler) tryBuff(now time.Time) bool {
	self := s.store.Self()
	if self.ResMax <= 0 {
		return false
	}

	candidates := s.buffCandidates(now, self)
	for _, c := range candidates {
		if c.def.Cost > self.Res {
			continue
		}
		// The reserve floor applies to buffs only: the cast must not
		// drop the resource below the configured percentage.
		if (self.Res-c.def.Cost)*100/self.ResMax < s.tuning.ManaReservePct {
			continue
		}

		cmd := c.def.Command
		if c.target != "" {
			cmd += " " + c.target
		}
		s.dispatch(now, cmd, "buff")
		return true
	}
	return false
}

// buffCandidates builds the needs-recast list in cast order
func (s *Scheduler) buffCandidates(now time.Time, self game.SelfSnapshot) []buffCandidate {
	selfRole := s.tables.RoleFor(self.Class)
	members := s.store.Party()

	var out []buffCandidate
	for _, def := range s.tables.Buffs {
		if !def.AutoRecast {
			continue
		}

		if s.buffSelfTargeted(def, selfRole) && s.NeedsRecast(def, "", now) {
			out = append(out, buffCandidate{def: def})
		}

		for _, m := range members {
			if s.store.IsSelf(m.Full) || s.store.IsSelf(m.Short) {
				continue
			}
			if !s.buffPartyTargeted(def, m) {
				continue
			}
			if s.NeedsRecast(def, m.Short, now) {
				out = append(out, buffCandidate{def: def, target: m.Short})
			}
		}
	}

	// Priority order; self-target pairs win ties
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].def.Priority != out[j].def.Priority {
			return out[i].def.Priority < out[j].def.Priority
		}
		return out[i].target == "" && out[j].target != ""
	})
	return out
}

// buffSelfTargeted decides whether a buff applies to the caster. A buff
// manually cast on self stays maintained even when policy says never.
func (s *Scheduler) buffSelfTargeted(def config.BuffDef, selfRole config.Role) bool {
	switch def.SelfPolicy {
	case config.SelfAlways:
		return true
	case config.SelfIfCaster:
		if selfRole == config.RoleCaster {
			return true
		}
	case config.SelfIfMelee:
		if selfRole == config.RoleMelee {
			return true
		}
	}
	_, active := s.store.EffectFor(def.ID, "")
	return active
}

// buffPartyTargeted decides whether a buff applies to a party member.
// A manual cast on that member keeps it maintained regardless of policy.
func (s *Scheduler) buffPartyTargeted(def config.BuffDef, m game.MemberSnapshot) bool {
	switch def.PartyPolicy {
	case config.PartyAll:
		return true
	case config.PartyMelee:
		if s.tables.RoleFor(m.Class) == config.RoleMelee {
			return true
		}
	case config.PartyCaster:
		if s.tables.RoleFor(m.Class) == config.RoleCaster {
			return true
		}
	}
	_, active := s.store.EffectFor(def.ID, m.Short)
	return active
}

// NeedsRecast reports whether a (buff, target) pair needs casting: no
// active instance, or remaining time at or below the recast buffer (a
// zero buffer renews only once fully expired).
func (s *Scheduler) NeedsRecast(def config.BuffDef, target string, now time.Time) bool {
	eff, ok := s.store.EffectFor(def.ID, target)
	if !ok {
		return true
	}
	remaining := eff.ExpiresAt.Sub(now)
	if def.RecastBuffer > 0 {
		return remaining <= def.RecastBuffer
	}
	return remaining <= 0
}
