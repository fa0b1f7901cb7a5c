package parser

import "testing"

func TestTemplateMidPlaceholder(t *testing.T) {
	m := CompileTemplate("You feel {target} grow stronger!")

	target, ok := m.Match("You feel Azii RageQuit grow stronger!")
	if !ok {
		t.Fatal("expected a match")
	}
	if target != "Azii RageQuit" {
		t.Errorf("expected %q, got %q", "Azii RageQuit", target)
	}

	if _, ok := m.Match("You feel tired."); ok {
		t.Error("unrelated line should not match")
	}
}

func TestTemplateEndPlaceholder(t *testing.T) {
	m := CompileTemplate("A chill settles over {target}")

	target, ok := m.Match("A chill settles over Brom Ironfist.")
	if !ok {
		t.Fatal("expected a match")
	}
	if target != "Brom Ironfist" {
		t.Errorf("trailing punctuation should be stripped, got %q", target)
	}
}

func TestTemplateStartPlaceholder(t *testing.T) {
	m := CompileTemplate("{target} turns a sickly shade of green!")

	target, ok := m.Match("Brom turns a sickly shade of green!")
	if !ok {
		t.Fatal("expected a match")
	}
	if target != "Brom" {
		t.Errorf("expected %q, got %q", "Brom", target)
	}
}

func TestTemplateWithoutPlaceholder(t *testing.T) {
	m := CompileTemplate("The ground trembles beneath you")

	target, ok := m.Match("The ground trembles beneath you!")
	if !ok {
		t.Fatal("expected substring containment to match")
	}
	if target != "" {
		t.Errorf("substring templates carry no target, got %q", target)
	}
}

func TestResolveSelf(t *testing.T) {
	cases := []struct {
		name   string
		player string
		want   bool
	}{
		{"Azii RageQuit", "Azii RageQuit", true},
		{"Azii", "Azii RageQuit", true}, // abbreviated form
		{"Azii RageQuit", "Azii", true}, // expanded form
		{"Brom", "Azii RageQuit", false},
		{"Azii Imposter", "Azii RageQuit", false},
		{"", "Azii RageQuit", false},
		{"Azii", "", false},
	}

	for _, tc := range cases {
		if got := ResolveSelf(tc.name, tc.player); got != tc.want {
			t.Errorf("ResolveSelf(%q, %q) = %v, want %v", tc.name, tc.player, got, tc.want)
		}
	}
}

// Documents the known first-token ambiguity: another character sharing the
// player's first name resolves as self. Kept for compatibility.
func TestResolveSelfSharedFirstToken(t *testing.T) {
	if !ResolveSelf("Azii", "Azii RageQuit") {
		t.Fatal("abbreviated self should resolve")
	}
	// The same short form could belong to "Azii Stranger"; the resolver
	// cannot tell and answers yes.
	if !ResolveSelf("Azii", "Azii Stranger") {
		t.Error("first-token rule should apply regardless of surname")
	}
}
