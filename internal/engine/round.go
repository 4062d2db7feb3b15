package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-log"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// ComputeRound processes one player's turn for the current tick:
// relax cooldown, gate on presence, roll for an encounter, apply the
// per-tick reward, and commit.
func (e *Engine) ComputeRound(ctx context.Context, id game.Ident) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.Profile(id)

	// Cooldown is a countdown clamped at zero; negative remainders
	// read as "no cooldown" everywhere else.
	if profile.Cooldown != 0 {
		profile.Cooldown -= e.cfg.Capital
		if profile.Cooldown < 0 {
			profile.Cooldown = 0
		}
	}

	if profile.Presence != game.PresenceOnline || id.Local == e.cfg.Alias {
		if err := e.store.Set(registry.PlayerPath(id), profile); err != nil {
			return fmt.Errorf("storing player: %w", err)
		}
		return e.commit(ctx)
	}

	return e.reward(ctx, id, profile)
}

// reward rolls for an encounter, applies its mutations plus the
// unconditional per-tick capital and experience, announces level-ups,
// and commits the player's new state.
func (e *Engine) reward(ctx context.Context, id game.Ident, profile game.Entity) error {
	logger := log.GetLogger(ctx)

	if e.rnd.Float64() < e.cfg.EncounterChance {
		enc, err := e.roller.Generate(&profile)
		if err != nil {
			return fmt.Errorf("generating encounter: %w", err)
		}
		profile = *enc.Entity
		e.narrateEncounter(ctx, enc)
	}

	prior := game.Level(profile.Experience)

	profile.Wealth += e.cfg.Capital
	profile.Experience += e.cfg.Experience

	if after := game.Level(profile.Experience); after > prior {
		text, err := e.narrator.Render("levelup", map[string]any{
			"Name":  profile.Name,
			"Level": after,
		})
		if err == nil {
			e.Announce(ctx, text)
		} else {
			logger.WithError(err).Error("rendering level-up")
		}
	}

	if err := e.store.Set(registry.PlayerPath(id), profile); err != nil {
		return fmt.Errorf("storing player: %w", err)
	}
	return e.commit(ctx)
}

// narrateEncounter announces the outcome of an encounter.
func (e *Engine) narrateEncounter(ctx context.Context, enc *game.Encounter) {
	logger := log.GetLogger(ctx)

	var (
		name string
		data map[string]any
	)

	switch enc.Type {
	case game.EncounterBlessing:
		name = "blessing"
		data = map[string]any{"Name": enc.Entity.Name}
	case game.EncounterMonster:
		name = "monster"
		data = map[string]any{
			"Name":    enc.Entity.Name,
			"Monster": enc.Monster.Name,
			"Loot":    enc.Loot,
		}
	case game.EncounterItem:
		switch {
		case enc.Equipped:
			name = "item-equipped"
		case enc.Skipped:
			name = "item-skipped"
		default:
			name = "item-carried"
		}
		data = map[string]any{
			"Name":  enc.Entity.Name,
			"Item":  enc.Item.Name,
			"Count": len(enc.Entity.Inventory),
		}
	default:
		return
	}

	text, err := e.narrator.Render(name, data)
	if err != nil {
		logger.WithError(err).Errorf("rendering %s", name)
		return
	}
	e.Announce(ctx, text)
}

// Penalize slashes a player for talking in the game channel: wealth
// halved, cooldown reset. The announcement is debounced; it only
// fires when the prior cooldown was below the announce threshold, so
// repeated offenses during a fresh penalty stay quiet.
func (e *Engine) Penalize(ctx context.Context, id game.Ident) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.Profile(id)

	notify := profile.Cooldown < e.cfg.AnnounceThreshold

	profile.Cooldown = e.cfg.PenaltyCooldown
	profile.Wealth = profile.Wealth / 2

	path := registry.PlayerPath(id)
	err := e.store.Apply([]state.PatchOp{
		{Op: state.OpReplace, Path: path + "/cooldown", Value: profile.Cooldown},
		{Op: state.OpReplace, Path: path + "/wealth", Value: profile.Wealth},
	})
	if err != nil {
		return fmt.Errorf("applying penalty: %w", err)
	}

	if err := e.commit(ctx); err != nil {
		return err
	}

	if notify {
		text, err := e.narrator.Render("penalty", map[string]any{"Name": profile.Name})
		if err != nil {
			return fmt.Errorf("rendering penalty: %w", err)
		}
		e.Announce(ctx, text)
	}
	return nil
}

// Leaderboard renders the top players by experience and persists the
// rendered board.
func (e *Engine) Leaderboard(ctx context.Context) (string, error) {
	var players []game.Entity
	for _, key := range e.store.Keys("/players") {
		id, err := game.ParseIdent(key, "users")
		if err != nil {
			continue
		}
		players = append(players, e.Profile(id))
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].Experience > players[j].Experience
	})

	lines := make([]string, 0, 10)
	for n, p := range players {
		if n >= 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s, with **%d** experience", n+1, p.Name, p.Experience))
	}

	if err := e.store.Set("/leaderboard", lines); err != nil {
		log.GetLogger(ctx).WithError(err).Error("saving leaderboard")
	}

	return "Leaderboard:\n" + strings.Join(lines, "\n"), nil
}
