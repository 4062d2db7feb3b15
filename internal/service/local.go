// Package service provides the built-in "local" membership adapter.
// It answers the engine's membership and presence queries from a
// mirror of the game state, kept current by trusting the engine's
// emitted patch batches.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/FabricLabs/idlerpg/internal/bus"
	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// Subscriber is the piece of the bus a trusting service needs.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Local is a service adapter backed by an in-process state mirror.
type Local struct {
	name string

	mu     sync.RWMutex
	mirror *state.Tree
}

func NewLocal(name string) *Local {
	if name == "" {
		name = game.DefaultService
	}
	return &Local{
		name:   name,
		mirror: state.NewTree(state.Namespaces...),
	}
}

func (l *Local) Name() string {
	return l.name
}

// Trust subscribes to emitted patch batches and replays them into the
// mirror, the downstream half of the patches contract. Batches that
// fail validation are discarded whole.
func (l *Local) Trust(sub Subscriber) (func(), error) {
	return sub.Subscribe(bus.SubjectPatches, func(data []byte) {
		var ops []state.PatchOp
		if err := json.Unmarshal(data, &ops); err != nil {
			slog.Error("decoding trusted patches", "error", err)
			return
		}
		if err := l.ApplyPatches(ops); err != nil {
			slog.Error("applying trusted patches", "error", err)
		}
	})
}

// ApplyPatches replays a patch batch against the mirror.
func (l *Local) ApplyPatches(ops []state.PatchOp) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mirror.Apply(ops)
}

// SeedUser places a user directly into the mirror, used at bootstrap
// and in tests to simulate the external network's own view.
func (l *Local) SeedUser(u registry.User) error {
	id, err := game.ParseIdent(u.Id, "users")
	if err != nil {
		return fmt.Errorf("parsing user id: %w", err)
	}
	u.Id = id.String()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mirror.Set(state.Path("users", u.Id), u)
}

// Members lists the user ids in a channel.
func (l *Local) Members(ctx context.Context, channel string) ([]string, error) {
	id, err := game.ParseIdent(channel, "channels")
	if err != nil {
		return nil, fmt.Errorf("parsing channel: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	v, ok := l.mirror.Get(state.Path("channels", id.String()) + "/members")
	if !ok {
		return nil, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding members: %w", err)
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	return members, nil
}

// User fetches a user record by id.
func (l *Local) User(ctx context.Context, id string) (registry.User, error) {
	ident, err := game.ParseIdent(id, "users")
	if err != nil {
		return registry.User{}, fmt.Errorf("parsing user id: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	v, ok := l.mirror.Get(state.Path("users", ident.String()))
	if !ok {
		return registry.User{}, fmt.Errorf("unknown user %q", id)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return registry.User{}, fmt.Errorf("encoding user: %w", err)
	}
	var u registry.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return registry.User{}, fmt.Errorf("decoding user: %w", err)
	}
	if u.Id == "" {
		u.Id = ident.String()
	}
	return u, nil
}

// Presence reports a user's presence, defaulting to offline for
// unknown users.
func (l *Local) Presence(ctx context.Context, id string) (game.Presence, error) {
	u, err := l.User(ctx, id)
	if err != nil {
		return game.PresenceOffline, nil
	}
	if u.Presence == "" {
		return game.PresenceOffline, nil
	}
	return u.Presence, nil
}
