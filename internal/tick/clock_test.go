package tick

import (
	"testing"
	"time"
)

func newTestClock(fired *[]time.Time) *Clock {
	return NewClock(5*time.Second, 500*time.Millisecond, 750*time.Millisecond,
		func(now time.Time) { *fired = append(*fired, now) })
}

func TestDamageClusterFiresOnce(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordDamage(base)
	c.RecordDamage(base.Add(300 * time.Millisecond))

	if len(fired) != 1 {
		t.Fatalf("two clustered damage lines should fire exactly one tick, got %d", len(fired))
	}

	// A third line in the same cluster must not fire again
	c.RecordDamage(base.Add(450 * time.Millisecond))
	if len(fired) != 1 {
		t.Errorf("third clustered line fired an extra tick")
	}

	next, ok := c.NextTick()
	if !ok {
		t.Fatal("expected a prediction after an observed tick")
	}
	want := base.Add(300*time.Millisecond + 5*time.Second)
	if !next.Equal(want) {
		t.Errorf("prediction = %v, want %v", next, want)
	}
}

func TestIsolatedDamageDoesNotFire(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordDamage(base)
	c.RecordDamage(base.Add(2 * time.Second)) // outside the cluster window
	c.RecordDamage(base.Add(4 * time.Second))

	if len(fired) != 0 {
		t.Errorf("spread-out damage lines fired %d ticks", len(fired))
	}
	if _, ok := c.NextTick(); ok {
		t.Error("no prediction should exist without a cluster or engagement")
	}
}

func TestEngagementSeedsPrediction(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)

	next, ok := c.NextTick()
	if !ok {
		t.Fatal("expected a prediction after engagement")
	}
	if !next.Equal(base.Add(5 * time.Second)) {
		t.Errorf("prediction = %v", next)
	}
	if len(fired) != 0 {
		t.Error("seeding must not fire a tick")
	}
}

func TestPollFiresOnBoundary(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)

	c.Poll(base.Add(4 * time.Second))
	if len(fired) != 0 {
		t.Fatal("poll fired before the boundary")
	}

	c.Poll(base.Add(5*time.Second + 100*time.Millisecond))
	if len(fired) != 1 {
		t.Fatalf("poll across the boundary should fire once, got %d", len(fired))
	}

	next, _ := c.NextTick()
	if !next.Equal(base.Add(10 * time.Second)) {
		t.Errorf("prediction should advance one period, got %v", next)
	}
}

func TestPollSkipsMissedBoundaries(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)

	// Three periods elapse while the loop was busy; no burst
	c.Poll(base.Add(16 * time.Second))
	if len(fired) != 1 {
		t.Fatalf("expected one catch-up tick, got %d", len(fired))
	}
	next, _ := c.NextTick()
	if !next.Equal(base.Add(20 * time.Second)) {
		t.Errorf("prediction should land on the next future boundary, got %v", next)
	}
}

func TestObservedTickResynchronizesDrift(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)

	// A cluster lands well away from the prediction: resync to it
	obs := base.Add(3 * time.Second)
	c.RecordDamage(obs)
	c.RecordDamage(obs.Add(200 * time.Millisecond))

	if len(fired) != 1 {
		t.Fatalf("drifted observation should fire, got %d", len(fired))
	}
	next, _ := c.NextTick()
	want := obs.Add(200*time.Millisecond + 5*time.Second)
	if !next.Equal(want) {
		t.Errorf("prediction = %v, want %v", next, want)
	}
}

func TestObservedTickAfterPollDoesNotDoubleFire(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)
	c.Poll(base.Add(5 * time.Second)) // fires the boundary

	// Damage lines confirming the same boundary arrive moments later
	c.RecordDamage(base.Add(5*time.Second + 100*time.Millisecond))
	c.RecordDamage(base.Add(5*time.Second + 250*time.Millisecond))

	if len(fired) != 1 {
		t.Errorf("observation of an already-fired boundary fired again, total %d", len(fired))
	}
}

func TestResetDropsPrediction(t *testing.T) {
	var fired []time.Time
	c := newTestClock(&fired)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.RecordEngagement(base)
	c.Reset()

	if _, ok := c.NextTick(); ok {
		t.Error("reset should drop the prediction")
	}
	c.Poll(base.Add(time.Minute))
	if len(fired) != 0 {
		t.Error("poll after reset fired")
	}
}
