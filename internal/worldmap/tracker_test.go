package worldmap

import (
	"strings"
	"testing"
)

func TestDirection(t *testing.T) {
	cases := []struct {
		cmd string
		dir string
		ok  bool
	}{
		{"n", "north", true},
		{"north", "north", true},
		{"sw", "southwest", true},
		{"u", "up", true},
		{"attack", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		dir, ok := Direction(tc.cmd)
		if dir != tc.dir || ok != tc.ok {
			t.Errorf("Direction(%q) = %q, %v", tc.cmd, dir, ok)
		}
	}
}

func TestTrackerLinksRooms(t *testing.T) {
	tr := NewTracker()

	tr.OnRoom("Town Square")
	tr.OnMove("north")
	tr.OnRoom("Market Street")

	if tr.Rooms() != 2 {
		t.Errorf("expected 2 rooms, got %d", tr.Rooms())
	}
	if tr.Current() != "Market Street" {
		t.Errorf("current = %q", tr.Current())
	}

	var dot strings.Builder
	if err := tr.ExportDOT(&dot); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := dot.String()
	if !strings.Contains(out, "Town Square") || !strings.Contains(out, "Market Street") {
		t.Errorf("rooms missing from export:\n%s", out)
	}
	if !strings.Contains(out, "north") {
		t.Errorf("edge label missing from export:\n%s", out)
	}
}

func TestTrackerRevisitIsIdempotent(t *testing.T) {
	tr := NewTracker()

	tr.OnRoom("Town Square")
	tr.OnMove("north")
	tr.OnRoom("Market Street")
	tr.OnMove("south")
	tr.OnRoom("Town Square")
	tr.OnMove("north")
	tr.OnRoom("Market Street")

	if tr.Rooms() != 2 {
		t.Errorf("revisits must not duplicate rooms, got %d", tr.Rooms())
	}
}

func TestTrackerNoLinkWithoutMove(t *testing.T) {
	tr := NewTracker()

	tr.OnRoom("Town Square")
	tr.OnRoom("Teleport Chamber") // arrived by unknown means

	var dot strings.Builder
	if err := tr.ExportDOT(&dot); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Contains(dot.String(), "->") {
		t.Errorf("no edge expected without a movement command:\n%s", dot.String())
	}
}

func TestTrackerResetKeepsMap(t *testing.T) {
	tr := NewTracker()

	tr.OnRoom("Town Square")
	tr.OnMove("north")
	tr.Reset()

	if tr.Current() != "" {
		t.Error("reset should drop the current room")
	}
	if tr.Rooms() != 1 {
		t.Error("reset should keep the accumulated map")
	}

	// A stale pending move must not link across the reset
	tr.OnRoom("Market Street")
	var dot strings.Builder
	_ = tr.ExportDOT(&dot)
	if strings.Contains(dot.String(), "->") {
		t.Errorf("no edge expected across a reset:\n%s", dot.String())
	}
}
