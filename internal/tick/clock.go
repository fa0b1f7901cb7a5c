package tick

import (
	"sync"
	"time"

	"wisp/internal/log"
)

// The game advances on a fixed-period action cycle it never announces.
// Clock infers the cadence from observed traffic: an explicit engagement
// event seeds a prediction, and a cluster of damage lines landing close
// together is treated as a tick firing, resynchronizing the prediction
// against drift. Poll detects boundary crossings by wall clock alone, so
// ticks keep firing while the game is quiet.
type Clock struct {
	mu            sync.Mutex
	period        time.Duration
	clusterWindow time.Duration
	tolerance     time.Duration

	nextTick     time.Time // zero = no prediction
	lastDamage   time.Time
	clusterCount int
	lastFired    time.Time

	onTick func(time.Time)
}

// NewClock creates a clock with the given cadence parameters. onTick is
// invoked synchronously from whichever goroutine feeds the clock; the
// session loop owns both, so handlers run serialized.
func NewClock(period, clusterWindow, tolerance time.Duration, onTick func(time.Time)) *Clock {
	return &Clock{
		period:        period,
		clusterWindow: clusterWindow,
		tolerance:     tolerance,
		onTick:        onTick,
	}
}

// RecordEngagement seeds the prediction from an explicit engagement event
func (c *Clock) RecordEngagement(now time.Time) {
	c.mu.Lock()
	c.nextTick = now.Add(c.period)
	c.mu.Unlock()
	log.Debug("tick prediction seeded from engagement", "next", now.Add(c.period))
}

// RecordDamage feeds one damage-dealt line into the cluster detector.
// The second line within the cluster window marks an observed tick.
func (c *Clock) RecordDamage(now time.Time) {
	c.mu.Lock()
	if !c.lastDamage.IsZero() && now.Sub(c.lastDamage) <= c.clusterWindow {
		c.clusterCount++
	} else {
		c.clusterCount = 1
	}
	c.lastDamage = now

	fire := false
	if c.clusterCount == 2 {
		fire = c.observeTickLocked(now)
	}
	c.mu.Unlock()

	if fire {
		c.fire(now)
	}
}

// observeTickLocked reconciles an observed tick with the prediction.
// Returns true when a tick notification should fire.
func (c *Clock) observeTickLocked(now time.Time) bool {
	if c.nextTick.IsZero() {
		c.nextTick = now.Add(c.period)
		return true
	}

	diff := now.Sub(c.nextTick)
	if diff < 0 {
		diff = -diff
	}

	if diff <= c.tolerance {
		// On schedule: resync precisely to the observed time. Poll may
		// already have fired for this boundary; don't fire twice.
		c.nextTick = now.Add(c.period)
		return now.Sub(c.lastFired) > c.period/2
	}

	// Well outside tolerance: the prediction drifted, resynchronize
	log.Debug("tick drift detected, resynchronizing", "drift", diff)
	c.nextTick = now.Add(c.period)
	return now.Sub(c.lastFired) > c.period/2
}

// Poll fires a tick notification when the predicted boundary has been
// crossed. Called periodically from the session loop.
func (c *Clock) Poll(now time.Time) {
	c.mu.Lock()
	if c.nextTick.IsZero() || now.Before(c.nextTick) {
		c.mu.Unlock()
		return
	}
	// Advance by whole periods so a long quiet stretch doesn't burst
	for !c.nextTick.After(now) {
		c.nextTick = c.nextTick.Add(c.period)
	}
	c.mu.Unlock()

	c.fire(now)
}

// fire invokes the tick callback and stamps the firing time
func (c *Clock) fire(now time.Time) {
	c.mu.Lock()
	c.lastFired = now
	c.mu.Unlock()
	if c.onTick != nil {
		c.onTick(now)
	}
}

// NextTick returns the predicted next tick time, if one exists
func (c *Clock) NextTick() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextTick, !c.nextTick.IsZero()
}

// Period returns the configured tick period
func (c *Clock) Period() time.Duration {
	return c.period
}

// Reset drops the prediction and cluster state (used on reconnect)
func (c *Clock) Reset() {
	c.mu.Lock()
	c.nextTick = time.Time{}
	c.lastDamage = time.Time{}
	c.clusterCount = 0
	c.lastFired = time.Time{}
	c.mu.Unlock()
}
