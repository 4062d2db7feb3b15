package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-log"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// JoinEvent reports a user entering a channel.
type JoinEvent struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// PartEvent reports a user leaving a channel.
type PartEvent struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// ServiceEvent reports a service coming online.
type ServiceEvent struct {
	Name string `json:"name"`
}

// HandleJoin registers the channel and, when it is a configured game
// channel, registers the joining player, adds them to the member set,
// and welcomes them.
func (e *Engine) HandleJoin(ctx context.Context, ev JoinEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	channel, err := e.reg.RegisterChannel(registry.Channel{
		Id:   strings.ToLower(ev.Channel),
		Name: ev.Channel,
	})
	if err != nil {
		return fmt.Errorf("registering channel: %w", err)
	}

	if !e.isGameChannel(ev.Channel) {
		return nil
	}

	player, err := e.reg.RegisterPlayer(game.Entity{Name: ev.User})
	if err != nil {
		return fmt.Errorf("registering player: %w", err)
	}

	// Member sets are stored as sorted unique lists.
	channelId, err := game.ParseIdent(channel.Id, "channels")
	if err != nil {
		return fmt.Errorf("parsing channel id: %w", err)
	}
	members := map[string]bool{ev.User: true}
	for _, m := range channel.Members {
		members[m] = true
	}
	list := make([]string, 0, len(members))
	for m := range members {
		list = append(list, m)
	}
	sort.Strings(list)

	err = e.store.Apply([]state.PatchOp{{
		Op:    state.OpReplace,
		Path:  registry.ChannelPath(channelId) + "/members",
		Value: list,
	}})
	if err != nil {
		return fmt.Errorf("updating members: %w", err)
	}

	text, err := e.narrator.Render("welcome", map[string]any{"Name": player.Name})
	if err != nil {
		return fmt.Errorf("rendering welcome: %w", err)
	}
	e.Announce(ctx, text)
	return nil
}

// HandlePart marks the user offline. Parted users stay in the member
// set; the original behavior never pruned them.
func (e *Engine) HandlePart(ctx context.Context, ev PartEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := game.ParseIdent(ev.User, "users")
	if err != nil {
		return fmt.Errorf("parsing user: %w", err)
	}
	_, err = e.reg.RegisterUser(registry.User{
		Id:       id.String(),
		Presence: game.PresenceOffline,
	})
	return err
}

// HandleUser upserts a user record.
func (e *Engine) HandleUser(ctx context.Context, user registry.User) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.reg.RegisterUser(user)
	return err
}

// HandleChannel upserts a channel record.
func (e *Engine) HandleChannel(ctx context.Context, channel registry.Channel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.reg.RegisterChannel(channel)
	return err
}

// HandleService upserts a service record and commits.
func (e *Engine) HandleService(ctx context.Context, ev ServiceEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.reg.RegisterService(registry.Service{Name: ev.Name}); err != nil {
		return err
	}
	return e.commit(ctx)
}

// HandleMessage penalizes players for talking inside a game channel.
// Messages elsewhere are ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) error {
	if !e.isGameChannelTarget(msg.Target) {
		return nil
	}
	id, err := game.ParseIdent(msg.Actor, "users")
	if err != nil {
		return fmt.Errorf("parsing actor: %w", err)
	}
	return e.Penalize(ctx, id)
}

// HandlePatches validates and applies an inbound patch batch from a
// trusted source, then commits. A malformed batch is discarded whole;
// validation runs before any operation applies.
func (e *Engine) HandlePatches(ctx context.Context, ops []state.PatchOp) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Apply(ops); err != nil {
		return fmt.Errorf("applying patches: %w", err)
	}
	return e.commit(ctx)
}

// HandlePatch applies a single inbound patch operation.
func (e *Engine) HandlePatch(ctx context.Context, op state.PatchOp) error {
	return e.HandlePatches(ctx, []state.PatchOp{op})
}

func (e *Engine) isGameChannel(name string) bool {
	for _, c := range e.cfg.Channels {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// isGameChannelTarget matches either a bare channel name or a
// service-qualified service/channels/name target.
func (e *Engine) isGameChannelTarget(target string) bool {
	if e.isGameChannel(target) {
		return true
	}
	id, err := game.ParseIdent(target, "channels")
	if err != nil || id.Kind != "channels" {
		return false
	}
	return e.isGameChannel(id.Local)
}

// ReplayEvent is one recorded event, replayed through the same
// handlers the bus feeds.
type ReplayEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Replay feeds a recorded event log through the engine's handlers.
func (e *Engine) Replay(ctx context.Context, events []ReplayEvent) error {
	for i, ev := range events {
		var err error
		switch ev.Type {
		case "join":
			var payload JoinEvent
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandleJoin(ctx, payload)
			}
		case "part":
			var payload PartEvent
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandlePart(ctx, payload)
			}
		case "user":
			var payload registry.User
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandleUser(ctx, payload)
			}
		case "channel":
			var payload registry.Channel
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandleChannel(ctx, payload)
			}
		case "message":
			var payload Message
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandleMessage(ctx, payload)
			}
		case "service":
			var payload ServiceEvent
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandleService(ctx, payload)
			}
		case "patch":
			var payload state.PatchOp
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandlePatch(ctx, payload)
			}
		case "patches":
			var payload []state.PatchOp
			if err = json.Unmarshal(ev.Data, &payload); err == nil {
				err = e.HandlePatches(ctx, payload)
			}
		default:
			err = fmt.Errorf("unknown event type %q", ev.Type)
		}
		if err != nil {
			return fmt.Errorf("replaying event %d (%s): %w", i, ev.Type, err)
		}
	}
	return nil
}

// Bus-facing decoders. Failures are logged and the event dropped; a
// malformed inbound event must never crash the engine.

func (e *Engine) onJoin(ctx context.Context, data []byte) {
	var ev JoinEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding join event")
		return
	}
	if err := e.HandleJoin(ctx, ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling join event")
	}
}

func (e *Engine) onPart(ctx context.Context, data []byte) {
	var ev PartEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding part event")
		return
	}
	if err := e.HandlePart(ctx, ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling part event")
	}
}

func (e *Engine) onUser(ctx context.Context, data []byte) {
	var user registry.User
	if err := json.Unmarshal(data, &user); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding user event")
		return
	}
	if err := e.HandleUser(ctx, user); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling user event")
	}
}

func (e *Engine) onChannel(ctx context.Context, data []byte) {
	var channel registry.Channel
	if err := json.Unmarshal(data, &channel); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding channel event")
		return
	}
	if err := e.HandleChannel(ctx, channel); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling channel event")
	}
}

func (e *Engine) onMessage(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding message event")
		return
	}
	if err := e.HandleMessage(ctx, msg); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling message event")
	}
}

func (e *Engine) onService(ctx context.Context, data []byte) {
	var ev ServiceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding service event")
		return
	}
	if err := e.HandleService(ctx, ev); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling service event")
	}
}

func (e *Engine) onPatch(ctx context.Context, data []byte) {
	var op state.PatchOp
	if err := json.Unmarshal(data, &op); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding patch event")
		return
	}
	if err := e.HandlePatch(ctx, op); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling patch event")
	}
}

func (e *Engine) onPatches(ctx context.Context, data []byte) {
	var ops []state.PatchOp
	if err := json.Unmarshal(data, &ops); err != nil {
		log.GetLogger(ctx).WithError(err).Error("decoding patches event")
		return
	}
	if err := e.HandlePatches(ctx, ops); err != nil {
		log.GetLogger(ctx).WithError(err).Error("handling patches event")
	}
}
