package game

import (
	"time"

	"wisp/internal/log"
)

// RecordEffect registers a buff cast on a target (empty target = self).
// At most one instance exists per (buff, target) pair; recasting replaces
// the prior instance.
func (s *Store) RecordEffect(buffID int, target string, now time.Time) {
	s.mu.Lock()
	def, ok := s.tables.BuffByID(buffID)
	if !ok {
		s.mu.Unlock()
		log.Warn("cast event for unknown buff ignored", "buff", buffID)
		return
	}

	kept := s.effects[:0]
	for _, e := range s.effects {
		if !(e.buffID == buffID && e.target == target) {
			kept = append(kept, e)
		}
	}
	s.effects = append(kept, effect{
		buffID:    buffID,
		target:    target,
		castAt:    now,
		expiresAt: now.Add(def.Duration),
	})
	snap := s.effectSnapshotsLocked()
	s.mu.Unlock()

	s.bus.Fire(EventEffects, snap)
}

// ClearEffect removes one (buff, target) instance (explicit wear-off)
func (s *Store) ClearEffect(buffID int, target string) {
	s.mu.Lock()
	kept := s.effects[:0]
	removed := false
	for _, e := range s.effects {
		if e.buffID == buffID && e.target == target {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.effects = kept
	snap := s.effectSnapshotsLocked()
	s.mu.Unlock()

	if removed {
		s.bus.Fire(EventEffects, snap)
	}
}

// EffectFor returns the active instance for a (buff, target) pair
func (s *Store) EffectFor(buffID int, target string) (EffectSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.effects {
		if e.buffID == buffID && e.target == target {
			return s.effectSnapshotLocked(e), true
		}
	}
	return EffectSnapshot{}, false
}

// Effects returns snapshots of all active buff instances
func (s *Store) Effects() []EffectSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectSnapshotsLocked()
}

func (s *Store) effectSnapshotLocked(e effect) EffectSnapshot {
	name := ""
	if def, ok := s.tables.BuffByID(e.buffID); ok {
		name = def.Name
	}
	remaining := time.Until(e.expiresAt)
	return EffectSnapshot{
		BuffID:        e.buffID,
		Name:          name,
		Target:        e.target,
		CastAt:        e.castAt,
		ExpiresAt:     e.expiresAt,
		Remaining:     remaining,
		RemainingText: remainingText(remaining),
	}
}

func (s *Store) effectSnapshotsLocked() []EffectSnapshot {
	out := make([]EffectSnapshot, 0, len(s.effects))
	for _, e := range s.effects {
		out = append(out, s.effectSnapshotLocked(e))
	}
	return out
}

// SweepEffects removes expired buff instances and clears cure-initiated
// marks older than the retry timeout. Called from the periodic sweep timer.
func (s *Store) SweepEffects(now time.Time, cureRetryTimeout time.Duration) {
	s.mu.Lock()
	kept := s.effects[:0]
	expired := 0
	for _, e := range s.effects {
		if now.After(e.expiresAt) {
			expired++
			continue
		}
		kept = append(kept, e)
	}
	s.effects = kept

	retriable := 0
	for i := range s.ailments {
		a := &s.ailments[i]
		if !a.cureStarted.IsZero() && now.Sub(a.cureStarted) > cureRetryTimeout {
			a.cureStarted = time.Time{}
			retriable++
		}
	}

	var effectSnap []EffectSnapshot
	if expired > 0 {
		effectSnap = s.effectSnapshotsLocked()
	}
	s.mu.Unlock()

	if expired > 0 {
		log.Debug("effects expired", "count", expired)
		s.bus.Fire(EventEffects, effectSnap)
	}
	if retriable > 0 {
		log.Debug("stale cure attempts cleared", "count", retriable)
	}
}

// AddAilment registers a detected ailment; duplicates per (ailment,
// target) pair are ignored.
func (s *Store) AddAilment(ailmentID int, target string, now time.Time) {
	s.mu.Lock()
	if _, ok := s.tables.AilmentByID(ailmentID); !ok {
		s.mu.Unlock()
		log.Warn("detection for unknown ailment ignored", "ailment", ailmentID)
		return
	}
	for _, a := range s.ailments {
		if a.ailmentID == ailmentID && a.target == target {
			s.mu.Unlock()
			return
		}
	}
	s.ailments = append(s.ailments, ailment{ailmentID: ailmentID, target: target, detectedAt: now})
	snap := s.ailmentSnapshotsLocked()
	s.mu.Unlock()

	s.bus.Fire(EventAilments, snap)
}

// ClearAilment removes a cured ailment
func (s *Store) ClearAilment(ailmentID int, target string) {
	s.mu.Lock()
	kept := s.ailments[:0]
	removed := false
	for _, a := range s.ailments {
		if a.ailmentID == ailmentID && a.target == target {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	s.ailments = kept
	snap := s.ailmentSnapshotsLocked()
	s.mu.Unlock()

	if removed {
		s.bus.Fire(EventAilments, snap)
	}
}

// MarkCureInitiated stamps an ailment as having a cure in flight
func (s *Store) MarkCureInitiated(ailmentID int, target string, now time.Time) {
	s.mu.Lock()
	for i := range s.ailments {
		a := &s.ailments[i]
		if a.ailmentID == ailmentID && a.target == target {
			a.cureStarted = now
			break
		}
	}
	s.mu.Unlock()
}

// CurableAilments returns ailments with no cure currently in flight
func (s *Store) CurableAilments() []AilmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AilmentSnapshot
	for _, a := range s.ailments {
		if a.cureStarted.IsZero() {
			out = append(out, s.ailmentSnapshotLocked(a))
		}
	}
	return out
}

// Ailments returns snapshots of all active ailments
func (s *Store) Ailments() []AilmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ailmentSnapshotsLocked()
}

func (s *Store) ailmentSnapshotLocked(a ailment) AilmentSnapshot {
	name := ""
	if def, ok := s.tables.AilmentByID(a.ailmentID); ok {
		name = def.Name
	}
	return AilmentSnapshot{
		AilmentID:     a.ailmentID,
		Name:          name,
		Target:        a.target,
		DetectedAt:    a.detectedAt,
		CureInitiated: !a.cureStarted.IsZero(),
	}
}

func (s *Store) ailmentSnapshotsLocked() []AilmentSnapshot {
	out := make([]AilmentSnapshot, 0, len(s.ailments))
	for _, a := range s.ailments {
		out = append(out, s.ailmentSnapshotLocked(a))
	}
	return out
}
