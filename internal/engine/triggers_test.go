package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/FabricLabs/idlerpg/internal/game"
)

func TestDispatch_UnknownTrigger(t *testing.T) {
	env := newTestEngine(t, nil)
	if _, err := env.engine.Dispatch(context.Background(), "dance", &Message{}); err == nil {
		t.Error("expected error for unknown trigger")
	}
}

func TestTriggerOnline(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, nil)
	env.seedPlayer(t, "bob", game.PresenceOffline, nil)

	got, err := env.engine.Dispatch(context.Background(), "online", &Message{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(got, "alice") {
		t.Errorf("response %q missing online player", got)
	}
	if strings.Contains(got, "bob") {
		t.Errorf("response %q lists an offline player", got)
	}
}

func TestTriggerMemberlist(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, nil)
	env.seedPlayer(t, "bob", game.PresenceOffline, nil)

	got, err := env.engine.Dispatch(context.Background(), "memberlist", &Message{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"alice", "bob"} {
		if !strings.Contains(got, name) {
			t.Errorf("response %q missing member %q", got, name)
		}
	}
}

func TestTriggerPlay(t *testing.T) {
	env := newTestEngine(t, nil)

	got, err := env.engine.Dispatch(context.Background(), "play", &Message{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "response", got, "Join #idlerpg to play.")
}

func TestTriggerProfile(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, func(p *game.Entity) {
		p.Experience = 100
		p.Wealth = 55
		p.Weapon = &game.Item{Name: "rusty dagger", Attack: 2, Durability: 30}
	})

	got, err := env.engine.Dispatch(context.Background(), "profile", &Message{Actor: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"level **2**",
		"**100** experience",
		"**55** IDLE",
		"a rusty dagger",
		"**2** attack",
		"No special statuses",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("response %q missing %q", got, want)
		}
	}
}

func TestTriggerProfile_ReportsEffects(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, func(p *game.Entity) {
		p.Effects = map[string]bool{"blessed": true}
	})

	got, err := env.engine.Dispatch(context.Background(), "profile", &Message{Actor: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "currently blessed") {
		t.Errorf("response %q does not report the blessing", got)
	}
}

func TestTriggerInventory(t *testing.T) {
	tests := map[string]struct {
		mutate   func(*game.Entity)
		contains []string
	}{
		"empty inventory": {
			contains: []string{"no items"},
		},
		"carried items listed": {
			mutate: func(p *game.Entity) {
				p.Inventory = []game.Item{
					{Name: "iron mace", Attack: 5, Durability: 40},
					{Name: "longsword", Attack: 6, Durability: 25},
				}
			},
			contains: []string{"an iron mace", "a longsword", "**5** attack", "**25** durability"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEngine(t, nil)
			env.seedPlayer(t, "alice", game.PresenceOnline, tt.mutate)

			got, err := env.engine.Dispatch(context.Background(), "inventory", &Message{Actor: "alice"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("response %q missing %q", got, want)
				}
			}
		})
	}
}

func TestTriggerBalance(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, func(p *game.Entity) {
		p.Wealth = 42
	})

	got, err := env.engine.Dispatch(context.Background(), "balance", &Message{Actor: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "**42** IDLE") {
		t.Errorf("response %q missing balance", got)
	}
}

func TestTriggerLeaderboard(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, func(p *game.Entity) {
		p.Experience = 100
	})

	got, err := env.engine.Dispatch(context.Background(), "leaderboard", &Message{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "1. alice, with **100** experience") {
		t.Errorf("response %q missing leaderboard entry", got)
	}
}

func TestTriggerTransfer(t *testing.T) {
	env := newTestEngine(t, nil)
	env.seedPlayer(t, "alice", game.PresenceOnline, func(p *game.Entity) {
		p.Wealth = 100
	})
	env.seedPlayer(t, "bob", game.PresenceOnline, nil)

	got, err := env.engine.Dispatch(context.Background(), "transfer", &Message{
		Actor:  "alice",
		Object: "!transfer 10 bob",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "response", got, "Balance transferred successfully!")
}
