package game

import (
	"sort"
	"time"

	"wisp/internal/log"
	"wisp/internal/parser"
)

// ApplyRoster replaces the party from a roster snapshot. Exact values and
// update timestamps carry forward by short name; percentage fields are
// recomputed against the previously known max rather than overwritten.
// A member absent from two consecutive snapshots (and not resolvable to
// self) is removed along with their effects and ailments.
func (s *Store) ApplyRoster(ev parser.PartyRosterEvent) {
	now := time.Now()

	s.mu.Lock()
	seen := make(map[string]bool, len(ev.Entries))
	for _, entry := range ev.Entries {
		seen[entry.Short] = true
		m, ok := s.party[entry.Short]
		if !ok {
			m = &member{short: entry.Short}
			s.party[entry.Short] = m
		}
		m.full = entry.Full
		m.class = entry.Class
		m.hpPct = entry.HPPct
		m.hasRes = entry.HasRes
		m.resPct = entry.ResPct
		m.resting = entry.Resting
		m.ailing = entry.Ailing
		m.leader = entry.Leader
		m.missed = 0
		m.lastUpdate = now

		// Fresh percentages against the known max beat stale exact values
		if m.exact && m.hpMax > 0 {
			m.hp = m.hpMax * entry.HPPct / 100
			if m.hasRes && m.resMax > 0 {
				m.res = m.resMax * entry.ResPct / 100
			}
		}
	}

	var dropped []string
	for short, m := range s.party {
		if seen[short] {
			continue
		}
		m.missed++
		if m.missed >= 2 && !parser.ResolveSelf(m.full, s.name) && !parser.ResolveSelf(short, s.name) {
			delete(s.party, short)
			dropped = append(dropped, short)
		}
	}

	for _, short := range dropped {
		s.clearMemberLocked(short)
	}

	partySnap := s.partySnapshotLocked()
	s.mu.Unlock()

	for _, short := range dropped {
		log.Info("party member left, state cleared", "name", short)
	}
	s.bus.Fire(EventParty, partySnap)
}

// ApplyStatusPing applies an exact-vitals telepathic report. Pings for
// members we have never seen in a roster are ignored, not created.
func (s *Store) ApplyStatusPing(ev parser.StatusPingEvent) {
	s.mu.Lock()
	m, ok := s.party[ev.Name]
	if !ok {
		s.mu.Unlock()
		log.Debug("status ping for unknown member ignored", "name", ev.Name)
		return
	}
	m.hp, m.hpMax = ev.HP, ev.HPMax
	if ev.HasRes {
		m.hasRes = true
		m.res, m.resMax = ev.Res, ev.ResMax
		if ev.ResMax > 0 {
			m.resPct = ev.Res * 100 / ev.ResMax
		}
	}
	if ev.HPMax > 0 {
		m.hpPct = ev.HP * 100 / ev.HPMax
	}
	m.exact = true
	m.lastUpdate = time.Now()
	partySnap := s.partySnapshotLocked()
	s.mu.Unlock()

	s.bus.Fire(EventParty, partySnap)
}

// clearMemberLocked removes a departed member's effects and ailments
func (s *Store) clearMemberLocked(short string) {
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.target != short {
			kept = append(kept, e)
		}
	}
	s.effects = kept

	keptAil := s.ailments[:0]
	for _, a := range s.ailments {
		if a.target != short {
			keptAil = append(keptAil, a)
		}
	}
	s.ailments = keptAil
}

// Party returns snapshots of all party members, leader first then by name
func (s *Store) Party() []MemberSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partySnapshotLocked()
}

func (s *Store) partySnapshotLocked() []MemberSnapshot {
	out := make([]MemberSnapshot, 0, len(s.party))
	for _, m := range s.party {
		out = append(out, MemberSnapshot{
			Short:      m.short,
			Full:       m.full,
			Class:      m.class,
			HPPct:      m.hpPct,
			ResPct:     m.resPct,
			HasRes:     m.hasRes,
			HP:         m.hp,
			HPMax:      m.hpMax,
			Res:        m.res,
			ResMax:     m.resMax,
			Exact:      m.exact,
			Resting:    m.resting,
			Ailing:     m.ailing,
			Leader:     m.leader,
			LastUpdate: m.lastUpdate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Leader != out[j].Leader {
			return out[i].Leader
		}
		return out[i].Short < out[j].Short
	})
	return out
}

// Member returns the snapshot for one short name
func (s *Store) Member(short string) (MemberSnapshot, bool) {
	for _, m := range s.Party() {
		if m.Short == short {
			return m, true
		}
	}
	return MemberSnapshot{}, false
}

// StaleMembers returns members whose last update is older than the window
func (s *Store) StaleMembers(window time.Duration) []MemberSnapshot {
	cutoff := time.Now().Add(-window)
	var out []MemberSnapshot
	for _, m := range s.Party() {
		if m.LastUpdate.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}
