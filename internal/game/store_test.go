package game

import (
	"testing"
	"time"

	"wisp/internal/config"
	"wisp/internal/parser"
)

func testStore() *Store {
	tables := &config.Tables{
		Buffs: []config.BuffDef{
			{ID: 1, Name: "Bless", Duration: 10 * time.Minute},
			{ID: 2, Name: "Shield", Duration: 5 * time.Minute},
		},
		Ailments: []config.AilmentDef{
			{ID: 1, Name: "Poison"},
		},
	}
	return NewStore(tables, NewBus())
}

func TestApplyVitalsRaisesMaxOnly(t *testing.T) {
	s := testStore()

	s.ApplyVitals(parser.VitalsEvent{HP: 400, HPMaxKnown: true, HPMax: 500,
		ResKind: parser.ResourceMana, Res: 80, ResMaxKnown: true, ResMax: 100})

	// A bare current value above the known max raises it
	s.ApplyVitals(parser.VitalsEvent{HP: 550, ResKind: parser.ResourceMana, Res: 90})
	self := s.Self()
	if self.HPMax != 550 {
		t.Errorf("bare current above max should raise the max, got %d", self.HPMax)
	}

	// A bare current value below the known max leaves it alone
	s.ApplyVitals(parser.VitalsEvent{HP: 100, ResKind: parser.ResourceMana, Res: 10})
	self = s.Self()
	if self.HPMax != 550 || self.ResMax != 100 {
		t.Errorf("bare current below max must not lower it: hp max %d, res max %d",
			self.HPMax, self.ResMax)
	}
	if self.HP != 100 || self.Res != 10 {
		t.Errorf("current values should track the prompt: %d/%d", self.HP, self.Res)
	}
}

func TestFirstPromptClearsTraining(t *testing.T) {
	s := testStore()
	if !s.Training() {
		t.Fatal("store should start with automation suppressed")
	}

	s.ApplyVitals(parser.VitalsEvent{HP: 100})

	if s.Training() {
		t.Error("first prompt should clear the suppression flag")
	}
}

func TestResetSessionRestoresTraining(t *testing.T) {
	s := testStore()
	s.ApplyVitals(parser.VitalsEvent{HP: 100})
	s.SetCombat(true)
	s.SetHostiles([]Hostile{{Name: "a rat"}})

	s.ResetSession()

	if !s.Training() {
		t.Error("reset should suppress automation until the next prompt")
	}
	if s.InCombat() {
		t.Error("reset should clear combat")
	}
	if len(s.Hostiles()) != 0 {
		t.Error("reset should clear hostiles")
	}

	// The latch re-arms: the next prompt enables automation again
	s.ApplyVitals(parser.VitalsEvent{HP: 100})
	if s.Training() {
		t.Error("prompt after reset should clear suppression again")
	}
}

func TestApplyStatBlockEstablishesIdentity(t *testing.T) {
	s := testStore()
	s.ApplyStatBlock(parser.StatBlockEvent{
		Name: "Azii RageQuit", Race: "Elf", Class: "Priest", Level: 42,
		HP: 412, HPMax: 520, Res: 88, ResMax: 120, Exp: 1234567,
	})

	self := s.Self()
	if self.Name != "Azii RageQuit" || self.Level != 42 {
		t.Errorf("bad identity: %+v", self)
	}
	if !s.IsSelf("Azii") || !s.IsSelf("Azii RageQuit") {
		t.Error("self resolution should accept both name forms")
	}
	if s.IsSelf("Brom") {
		t.Error("other names must not resolve to self")
	}
}

func rosterEvent(shorts ...string) parser.PartyRosterEvent {
	var ev parser.PartyRosterEvent
	for _, short := range shorts {
		ev.Entries = append(ev.Entries, parser.RosterEntry{
			Short: short, Full: short + " Surname", Class: "Warrior", HPPct: 100,
		})
	}
	return ev
}

func TestRosterCarryForward(t *testing.T) {
	s := testStore()
	s.ApplyRoster(rosterEvent("Brom"))
	s.ApplyStatusPing(parser.StatusPingEvent{Name: "Brom", HP: 200, HPMax: 400})

	m, ok := s.Member("Brom")
	if !ok || !m.Exact || m.HPMax != 400 {
		t.Fatalf("ping should establish exact vitals: %+v", m)
	}

	// A fresh roster percentage recomputes HP against the known max
	ev := rosterEvent("Brom")
	ev.Entries[0].HPPct = 75
	s.ApplyRoster(ev)

	m, _ = s.Member("Brom")
	if m.HP != 300 {
		t.Errorf("expected 75%% of 400 = 300, got %d", m.HP)
	}
	if m.HPMax != 400 {
		t.Errorf("max should carry forward, got %d", m.HPMax)
	}
}

func TestRosterRemovalAfterTwoMisses(t *testing.T) {
	s := testStore()
	s.ApplyRoster(rosterEvent("Brom", "Lyra"))
	s.RecordEffect(1, "Lyra", time.Now())
	s.AddAilment(1, "Lyra", time.Now())

	// First snapshot without Lyra: still present
	s.ApplyRoster(rosterEvent("Brom"))
	if _, ok := s.Member("Lyra"); !ok {
		t.Fatal("one missed snapshot must not remove a member")
	}

	// Second consecutive miss: removed, along with effects and ailments
	s.ApplyRoster(rosterEvent("Brom"))
	if _, ok := s.Member("Lyra"); ok {
		t.Fatal("two missed snapshots should remove the member")
	}
	if _, ok := s.EffectFor(1, "Lyra"); ok {
		t.Error("departed member's effects should be cleared")
	}
	for _, a := range s.Ailments() {
		if a.Target == "Lyra" {
			t.Error("departed member's ailments should be cleared")
		}
	}
}

func TestRosterMissCounterResets(t *testing.T) {
	s := testStore()
	s.ApplyRoster(rosterEvent("Brom", "Lyra"))
	s.ApplyRoster(rosterEvent("Brom"))         // miss 1
	s.ApplyRoster(rosterEvent("Brom", "Lyra")) // back
	s.ApplyRoster(rosterEvent("Brom"))         // miss 1 again

	if _, ok := s.Member("Lyra"); !ok {
		t.Error("non-consecutive misses must not remove a member")
	}
}

func TestSelfNeverRemovedFromParty(t *testing.T) {
	s := testStore()
	s.ApplyStatBlock(parser.StatBlockEvent{Name: "Azii Surname"})
	s.ApplyRoster(rosterEvent("Azii", "Brom"))

	s.ApplyRoster(rosterEvent("Brom"))
	s.ApplyRoster(rosterEvent("Brom"))
	s.ApplyRoster(rosterEvent("Brom"))

	if _, ok := s.Member("Azii"); !ok {
		t.Error("the player's own entry must survive missed snapshots")
	}
}

func TestStatusPingUnknownMemberIgnored(t *testing.T) {
	s := testStore()
	s.ApplyStatusPing(parser.StatusPingEvent{Name: "Stranger", HP: 10, HPMax: 20})

	if _, ok := s.Member("Stranger"); ok {
		t.Error("pings must not create party members")
	}
}

func TestRecordEffectReplacesPerPair(t *testing.T) {
	s := testStore()
	base := time.Now()

	s.RecordEffect(1, "", base)
	s.RecordEffect(1, "", base.Add(time.Minute)) // recast replaces
	s.RecordEffect(1, "Brom", base)              // different target coexists
	s.RecordEffect(2, "", base)                  // different buff coexists

	if len(s.Effects()) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(s.Effects()))
	}
	e, ok := s.EffectFor(1, "")
	if !ok {
		t.Fatal("expected a self instance")
	}
	if !e.ExpiresAt.Equal(base.Add(time.Minute + 10*time.Minute)) {
		t.Errorf("recast should restart the duration, expires %v", e.ExpiresAt)
	}
}

func TestRecordEffectUnknownBuffIgnored(t *testing.T) {
	s := testStore()
	s.RecordEffect(99, "", time.Now())
	if len(s.Effects()) != 0 {
		t.Error("unknown buff ids must not create instances")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	s := testStore()
	base := time.Now()
	s.RecordEffect(1, "", base) // 10 minute duration
	s.RecordEffect(2, "", base) // 5 minute duration

	s.SweepEffects(base.Add(7*time.Minute), 10*time.Second)

	effects := s.Effects()
	if len(effects) != 1 {
		t.Fatalf("expected 1 surviving effect, got %d", len(effects))
	}
	if effects[0].BuffID != 1 {
		t.Errorf("wrong survivor: %+v", effects[0])
	}
}

func TestSweepClearsStaleCureAttempts(t *testing.T) {
	s := testStore()
	base := time.Now()
	s.AddAilment(1, "Brom", base)
	s.MarkCureInitiated(1, "Brom", base)

	if len(s.CurableAilments()) != 0 {
		t.Fatal("an in-flight cure should suppress retries")
	}

	// Within the timeout the mark stays
	s.SweepEffects(base.Add(5*time.Second), 10*time.Second)
	if len(s.CurableAilments()) != 0 {
		t.Fatal("cure mark cleared too early")
	}

	// Past the timeout the ailment becomes curable again
	s.SweepEffects(base.Add(15*time.Second), 10*time.Second)
	if len(s.CurableAilments()) != 1 {
		t.Error("stale cure mark should clear after the timeout")
	}
}

func TestAilmentDeduplication(t *testing.T) {
	s := testStore()
	now := time.Now()
	s.AddAilment(1, "Brom", now)
	s.AddAilment(1, "Brom", now.Add(time.Second))

	if len(s.Ailments()) != 1 {
		t.Errorf("duplicate detection should be ignored, got %d", len(s.Ailments()))
	}

	s.ClearAilment(1, "Brom")
	if len(s.Ailments()) != 0 {
		t.Error("cure should remove the ailment")
	}
}

func TestHostileListOrdering(t *testing.T) {
	s := testStore()
	s.SetHostiles([]Hostile{
		{Name: "a demon", Tier: config.TierFirst},
		{Name: "a rat", Tier: config.TierLast},
	})

	h, ok := s.PopHostile()
	if !ok || h.Name != "a demon" {
		t.Fatalf("expected the head of the list, got %+v", h)
	}
	if len(s.Hostiles()) != 1 {
		t.Errorf("pop should consume one entry")
	}

	s.ClearHostiles()
	if _, ok := s.PopHostile(); ok {
		t.Error("pop on an empty list should report false")
	}
}

func TestSessionStats(t *testing.T) {
	s := testStore()
	s.CountLine()
	s.CountLine()
	s.CountCommand()
	s.CountAction("heal")
	s.CountAction("attack")
	s.CountReconnect()

	st := s.Stats()
	if st.LinesParsed != 2 || st.CommandsSent != 1 {
		t.Errorf("bad counters: %+v", st)
	}
	if st.HealsCast != 1 || st.AttacksStarted != 1 || st.Reconnects != 1 {
		t.Errorf("bad action counters: %+v", st)
	}
}
