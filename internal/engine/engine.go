// Package engine implements the IdleRPG turn-resolution engine: the
// per-tick reward cycle, the rule-violation penalty, the economy
// mediator, and the command trigger surface, all mutating a single
// authoritative state tree.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pixil98/go-log"

	"github.com/FabricLabs/idlerpg/internal/bus"
	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/narrate"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// Config holds the engine's immutable tuning, passed in at
// construction.
type Config struct {
	Alias             string
	Channels          []string
	Capital           int64
	Experience        int64
	EncounterChance   float64
	PenaltyCooldown   int64
	AnnounceThreshold int64
	CommitTimeout     time.Duration
	DigestHour        int
}

// DefaultConfig mirrors the original game tuning.
func DefaultConfig() Config {
	return Config{
		Alias:             "idlerpg",
		Channels:          []string{"idlerpg"},
		Capital:           10,
		Experience:        10,
		EncounterChance:   0.05,
		PenaltyCooldown:   1000,
		AnnounceThreshold: 100,
		CommitTimeout:     30 * time.Second,
		DigestHour:        9,
	}
}

// Publisher sends engine events out to the surrounding bot layer.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Subscriber wires inbound service adapter events.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Bus is both halves of the event surface. *bus.Server satisfies it.
type Bus interface {
	Publisher
	Subscriber
}

// Service is the membership and presence surface the engine consumes
// from an external chat-like adapter.
type Service interface {
	Name() string
	Members(ctx context.Context, channel string) ([]string, error)
	User(ctx context.Context, id string) (registry.User, error)
	Presence(ctx context.Context, id string) (game.Presence, error)
}

// Message is one inbound or outbound chat message.
type Message struct {
	Actor  string `json:"actor"`
	Object string `json:"object"`
	Target string `json:"target"`
	Origin string `json:"origin,omitempty"`
}

// Whisper is a directed out-of-band notification.
type Whisper struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// Engine drives the game. All game-state mutation funnels through its
// mutex so interleaved event handlers and tick processing cannot race.
type Engine struct {
	cfg      Config
	store    *state.Store
	reg      *registry.Registry
	roller   *game.Roller
	narrator *narrate.Narrator
	bus      Bus
	services map[string]Service

	mu  sync.Mutex
	rnd *rand.Rand

	// wg tracks in-flight ticks and commits so Stop can drain them
	// before the gateway closes.
	wg sync.WaitGroup
}

func New(cfg Config, store *state.Store, reg *registry.Registry, roller *game.Roller, narrator *narrate.Narrator, b Bus, services []Service, rnd *rand.Rand) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    store,
		reg:      reg,
		roller:   roller,
		narrator: narrator,
		bus:      b,
		services: map[string]Service{},
		rnd:      rnd,
	}
	for _, s := range services {
		e.services[s.Name()] = s
	}

	// Share committed deltas with any trusted downstream listener.
	store.Subscribe(func(ops []state.PatchOp) {
		raw, err := json.Marshal(ops)
		if err != nil {
			return
		}
		_ = e.bus.Publish(bus.SubjectPatches, raw)
	})

	return e
}

// Start registers event subscriptions, seeds channel membership from
// each service, and runs the daily digest until the context is
// cancelled. On shutdown it waits for any in-flight tick or commit
// before closing the persistence gateway.
func (e *Engine) Start(ctx context.Context) error {
	logger := log.GetLogger(ctx)

	if err := e.store.Restore(ctx); err != nil {
		logger.WithError(err).Error("restoring state; starting empty")
	}

	unsubs, err := e.subscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	e.seedServices(ctx)

	digest := time.NewTimer(untilHour(time.Now(), e.cfg.DigestHour))
	defer digest.Stop()

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			if err := e.store.Close(); err != nil {
				return fmt.Errorf("closing state store: %w", err)
			}
			logger.Info("engine stopped")
			return nil
		case <-digest.C:
			e.digest(ctx)
			digest.Reset(untilHour(time.Now(), e.cfg.DigestHour))
		}
	}
}

// subscribeEvents wires every service's inbound event subjects. The
// bus worker may still be starting, so subscription is retried until
// it is reachable.
func (e *Engine) subscribeEvents(ctx context.Context) ([]func(), error) {
	type handler struct {
		event string
		fn    func(context.Context, []byte)
	}
	handlers := []handler{
		{"join", e.onJoin},
		{"part", e.onPart},
		{"user", e.onUser},
		{"channel", e.onChannel},
		{"message", e.onMessage},
		{"service", e.onService},
		{"patch", e.onPatch},
		{"patches", e.onPatches},
	}

	var unsubs []func()
	for name := range e.services {
		for _, h := range handlers {
			subject := bus.InboundSubject(name, h.event)
			fn := h.fn
			unsub, err := e.subscribeRetry(ctx, subject, func(data []byte) {
				fn(ctx, data)
			})
			if err != nil {
				for _, u := range unsubs {
					u()
				}
				return nil, err
			}
			unsubs = append(unsubs, unsub)
		}
	}
	return unsubs, nil
}

func (e *Engine) subscribeRetry(ctx context.Context, subject string, handler func([]byte)) (func(), error) {
	for {
		unsub, err := e.bus.Subscribe(subject, handler)
		if err == nil {
			return unsub, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// seedServices registers each configured service and channel and pulls
// the current membership snapshot through the registry.
func (e *Engine) seedServices(ctx context.Context) {
	logger := log.GetLogger(ctx)

	for name, svc := range e.services {
		if _, err := e.reg.RegisterService(registry.Service{Name: name}); err != nil {
			logger.WithError(err).Error("registering service")
			continue
		}

		for _, channel := range e.cfg.Channels {
			members, err := svc.Members(ctx, channel)
			if err != nil {
				logger.WithError(err).Errorf("getting members for %q", channel)
				continue
			}

			if _, err := e.reg.RegisterChannel(registry.Channel{
				Id:      name + "/channels/" + channel,
				Name:    channel,
				Members: members,
			}); err != nil {
				logger.WithError(err).Error("registering channel")
				continue
			}

			for _, member := range members {
				user, err := svc.User(ctx, member)
				if err != nil {
					logger.WithError(err).Errorf("getting user %q", member)
					continue
				}
				if _, err := e.reg.RegisterUser(user); err != nil {
					logger.WithError(err).Error("registering user")
				}
			}
		}
	}
}

// Tick runs one reward cycle: every active player's round, processed
// sequentially, each isolated so one failure cannot stop the loop.
func (e *Engine) Tick(ctx context.Context) error {
	e.wg.Add(1)
	defer e.wg.Done()

	logger := log.GetLogger(ctx)
	logger.Info("beginning tick")

	active, err := e.ActivePlayers()
	if err != nil {
		return fmt.Errorf("getting active players: %w", err)
	}

	for _, id := range active {
		e.runRound(ctx, id)
	}

	raw, _ := json.Marshal(map[string]any{"time": time.Now().UTC()})
	if err := e.bus.Publish(bus.SubjectTick, raw); err != nil {
		logger.WithError(err).Error("publishing tick")
	}

	logger.Info("tick complete")
	return nil
}

// runRound isolates one player's round; a panic or error is logged
// and the remaining players still process.
func (e *Engine) runRound(ctx context.Context, id game.Ident) {
	logger := log.GetLogger(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("round for %s panicked: %v", id, r)
		}
	}()

	if err := e.ComputeRound(ctx, id); err != nil {
		logger.WithError(err).Errorf("computing round for %s", id)
	}
}

// ActivePlayers lists players whose user record reports them online,
// excluding the bot's own identity.
func (e *Engine) ActivePlayers() ([]game.Ident, error) {
	var active []game.Ident
	for _, key := range e.store.Keys("/players") {
		id, err := game.ParseIdent(key, "users")
		if err != nil {
			continue
		}
		if id.Local == e.cfg.Alias {
			continue
		}

		var user registry.User
		if err := e.store.Read(registry.UserPath(id), &user); err != nil {
			continue
		}
		if user.Presence == game.PresenceOnline {
			active = append(active, id)
		}
	}
	return active, nil
}

// Profile returns the player bound to id, synthesizing game defaults
// for any missing stats. A missing player record yields a fresh
// default profile rather than an error; persistence failures fall
// back the same way.
func (e *Engine) Profile(id game.Ident) game.Entity {
	var p game.Entity
	if err := e.store.Read(registry.PlayerPath(id), &p); err != nil {
		p = game.Entity{}
	}

	p.Id = id.String()
	if p.Name == "" {
		p.Name = id.Local
	}
	if p.Type == "" {
		p.Type = "Player"
	}
	if p.Health == 0 {
		p.Health = game.MaxHealth
	}
	if p.Stamina == 0 {
		p.Stamina = game.MaxStamina
	}
	if p.Inventory == nil {
		p.Inventory = []game.Item{}
	}
	if p.Effects == nil {
		p.Effects = map[string]bool{}
	}

	var user registry.User
	if err := e.store.Read(registry.UserPath(id), &user); err == nil && user.Presence != "" {
		p.Presence = user.Presence
	} else if p.Presence == "" {
		p.Presence = game.PresenceOffline
	}

	return p
}

// commit persists and publishes under the configured timeout so a
// stalled gateway cannot stall a tick indefinitely.
func (e *Engine) commit(ctx context.Context) error {
	e.wg.Add(1)
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.CommitTimeout)
	defer cancel()
	return e.store.Commit(ctx)
}

// Announce sends a channel-wide message to every configured channel
// on every service.
func (e *Engine) Announce(ctx context.Context, text string) {
	logger := log.GetLogger(ctx)
	for name := range e.services {
		for _, channel := range e.cfg.Channels {
			msg := Message{
				Actor:  e.cfg.Alias,
				Object: text,
				Target: name + "/channels/" + channel,
			}
			raw, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := e.bus.Publish(bus.SubjectMessage, raw); err != nil {
				logger.WithError(err).Error("announcing")
			}
		}
	}
}

// Whisper sends a directed notification to a single player.
func (e *Engine) Whisper(ctx context.Context, target, text string) {
	raw, err := json.Marshal(Whisper{Target: target, Message: text})
	if err != nil {
		return
	}
	if err := e.bus.Publish(bus.SubjectWhisper, raw); err != nil {
		log.GetLogger(ctx).WithError(err).Error("whispering")
	}
}

// digest posts the daily leaderboard announcement.
func (e *Engine) digest(ctx context.Context) {
	logger := log.GetLogger(ctx)

	board, err := e.Leaderboard(ctx)
	if err != nil {
		logger.WithError(err).Error("building leaderboard digest")
		return
	}

	text, err := e.narrator.Render("digest", map[string]any{"Leaderboard": board})
	if err != nil {
		logger.WithError(err).Error("rendering digest")
		return
	}
	e.Announce(ctx, text)
}

// untilHour returns the duration from now until the next occurrence
// of the given local hour.
func untilHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
