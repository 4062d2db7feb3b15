package narrate

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestArticle(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp string
	}{
		"consonant":       {in: "rusty dagger", exp: "a rusty dagger"},
		"vowel":           {in: "iron mace", exp: "an iron mace"},
		"uppercase vowel": {in: "Axe", exp: "an Axe"},
		"empty":           {in: "", exp: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "article", Article(tt.in), tt.exp)
		})
	}
}

func TestRender(t *testing.T) {
	tests := map[string]struct {
		template string
		data     any
		contains []string
	}{
		"welcome": {
			template: "welcome",
			data:     map[string]any{"Name": "alice"},
			contains: []string{"Welcome to IdleRPG, alice."},
		},
		"blessing": {
			template: "blessing",
			data:     map[string]any{"Name": "alice"},
			contains: []string{"alice has been blessed"},
		},
		"monster": {
			template: "monster",
			data:     map[string]any{"Name": "alice", "Monster": "troll", "Loot": 25},
			contains: []string{"wild troll", "**25** gold"},
		},
		"equipped item gets an article": {
			template: "item-equipped",
			data:     map[string]any{"Name": "alice", "Item": "iron mace"},
			contains: []string{"an iron mace", "equipped as their main weapon"},
		},
		"carried item reports inventory count": {
			template: "item-carried",
			data:     map[string]any{"Name": "alice", "Item": "rusty dagger", "Count": 3},
			contains: []string{"a rusty dagger", "**3** items"},
		},
		"levelup": {
			template: "levelup",
			data:     map[string]any{"Name": "alice", "Level": 4},
			contains: []string{"alice has reached level 4!"},
		},
		"penalty": {
			template: "penalty",
			data:     map[string]any{"Name": "alice"},
			contains: []string{"alice has disrupted the peace!"},
		},
		"transfer whisper": {
			template: "transfer-whisper",
			data:     map[string]any{"From": "alice", "FromId": "local/users/alice", "Amount": 40},
			contains: []string{"alice (local/users/alice)", "**40** IDLE"},
		},
	}

	n, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := n.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("rendered %q, expected it to contain %q", got, want)
				}
			}
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	n, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := n.Render("nonexistent", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRender_WrapsLongLines(t *testing.T) {
	n, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := n.Render("welcome", map[string]any{"Name": "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range strings.Split(got, "\n") {
		if len(line) > DefaultWidth {
			t.Errorf("line exceeds %d characters: %q", DefaultWidth, line)
		}
	}
}
