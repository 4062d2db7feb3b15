package service

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/FabricLabs/idlerpg/internal/bus"
	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// fakeSub captures the subscription and lets the test feed it data.
type fakeSub struct {
	subject string
	handler func([]byte)
}

func (s *fakeSub) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	s.subject = subject
	s.handler = handler
	return func() {}, nil
}

func TestLocalName(t *testing.T) {
	testutil.AssertEqual(t, "explicit name", NewLocal("discord").Name(), "discord")
	testutil.AssertEqual(t, "default name", NewLocal("").Name(), game.DefaultService)
}

func TestLocalSeedUser(t *testing.T) {
	l := NewLocal("local")

	if err := l.SeedUser(registry.User{Id: "alice", Presence: game.PresenceOnline}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := l.User(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "id", u.Id, "local/users/alice")
	testutil.AssertEqual(t, "presence", u.Presence, game.PresenceOnline)
}

func TestLocalUser_Unknown(t *testing.T) {
	l := NewLocal("local")
	if _, err := l.User(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestLocalPresence(t *testing.T) {
	l := NewLocal("local")
	if err := l.SeedUser(registry.User{Id: "alice", Presence: game.PresenceOnline}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		id  string
		exp game.Presence
	}{
		"known user":   {id: "alice", exp: game.PresenceOnline},
		"unknown user": {id: "ghost", exp: game.PresenceOffline},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := l.Presence(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "presence", p, tt.exp)
		})
	}
}

func TestLocalMembers(t *testing.T) {
	l := NewLocal("local")

	// No channel yet.
	members, err := l.Members(context.Background(), "idlerpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if members != nil {
		t.Errorf("expected nil members, got %v", members)
	}

	err = l.ApplyPatches([]state.PatchOp{{
		Op:    state.OpAdd,
		Path:  state.Path("channels", "local/channels/idlerpg"),
		Value: map[string]any{"members": []string{"alice", "bob"}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	members, err = l.Members(context.Background(), "idlerpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(members, []string{"alice", "bob"}) {
		t.Errorf("got members %v, expected [alice bob]", members)
	}
}

func TestLocalTrust(t *testing.T) {
	l := NewLocal("local")
	sub := &fakeSub{}

	if _, err := l.Trust(sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "subject", sub.subject, bus.SubjectPatches)

	ops := []state.PatchOp{{
		Op:    state.OpAdd,
		Path:  state.Path("users", "local/users/alice"),
		Value: map[string]any{"presence": "online"},
	}}
	raw, err := json.Marshal(ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub.handler(raw)

	p, err := l.Presence(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "presence", p, game.PresenceOnline)
}

func TestLocalTrust_MalformedBatchDropped(t *testing.T) {
	l := NewLocal("local")
	sub := &fakeSub{}

	if _, err := l.Trust(sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Neither bad JSON nor an invalid batch disturbs the mirror.
	sub.handler([]byte(`{not json`))
	sub.handler([]byte(`[{"op":"move","path":"/users/alice"}]`))

	if _, err := l.User(context.Background(), "alice"); err == nil {
		t.Error("expected mirror to be untouched")
	}
}
