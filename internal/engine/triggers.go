package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/narrate"
)

// TriggerFunc is the uniform signature for command triggers.
type TriggerFunc func(ctx context.Context, msg *Message) (string, error)

// Triggers returns the command table: keyword to handler, dispatched
// by the surrounding bot layer.
func (e *Engine) Triggers() map[string]TriggerFunc {
	return map[string]TriggerFunc{
		"online":      e.handleOnline,
		"memberlist":  e.handleMemberlist,
		"play":        e.handlePlay,
		"profile":     e.handleProfile,
		"inventory":   e.handleInventory,
		"leaderboard": e.handleLeaderboard,
		"transfer":    e.handleTransfer,
		"balance":     e.handleBalance,
	}
}

// Dispatch routes a named trigger to its handler.
func (e *Engine) Dispatch(ctx context.Context, name string, msg *Message) (string, error) {
	fn, ok := e.Triggers()[name]
	if !ok {
		return "", fmt.Errorf("unknown trigger %q", name)
	}
	return fn(ctx, msg)
}

func (e *Engine) handleOnline(ctx context.Context, msg *Message) (string, error) {
	active, err := e.ActivePlayers()
	if err != nil {
		return "", err
	}
	names := make([]string, len(active))
	for i, id := range active {
		names[i] = e.Profile(id).Name
	}
	return fmt.Sprintf("Current online members:\n\n```\n%s\n```", strings.Join(names, "\n")), nil
}

func (e *Engine) handleMemberlist(ctx context.Context, msg *Message) (string, error) {
	var names []string
	for _, key := range e.store.Keys("/players") {
		id, err := game.ParseIdent(key, "users")
		if err != nil {
			continue
		}
		names = append(names, e.Profile(id).Name)
	}
	return fmt.Sprintf("Current memberlist:\n\n```\n%s\n```", strings.Join(names, "\n")), nil
}

func (e *Engine) handlePlay(ctx context.Context, msg *Message) (string, error) {
	return fmt.Sprintf("Join #%s to play.", e.cfg.Channels[0]), nil
}

func (e *Engine) handleProfile(ctx context.Context, msg *Message) (string, error) {
	id, err := game.ParseIdent(msg.Actor, "users")
	if err != nil {
		return "", fmt.Errorf("parsing actor: %w", err)
	}
	p := e.Profile(id)
	d := game.DeriveStats(&p)

	response := fmt.Sprintf(
		"You are level **%d** (having earned **%d** experience), with **%d** stamina, **%d** health, and **%d** IDLE in wealth.",
		d.Level, p.Experience, p.Stamina, p.Health, p.Wealth)

	if p.Weapon != nil {
		response += fmt.Sprintf("  Your current weapon is %s, which has **%d** attack and **%d** durability.",
			narrate.Article(p.Weapon.Name), p.Weapon.Attack, p.Weapon.Durability)
	}

	var effects []string
	for name, on := range p.Effects {
		if on {
			effects = append(effects, name)
		}
	}
	if len(effects) > 0 {
		response += fmt.Sprintf("  You are currently %s.", effects[0])
	} else {
		response += "  No special statuses are currently applied."
	}

	return response, nil
}

func (e *Engine) handleInventory(ctx context.Context, msg *Message) (string, error) {
	id, err := game.ParseIdent(msg.Actor, "users")
	if err != nil {
		return "", fmt.Errorf("parsing actor: %w", err)
	}
	p := e.Profile(id)

	if len(p.Inventory) == 0 {
		return "You have no items in your inventory.", nil
	}

	response := "Your inventory:"
	for _, item := range p.Inventory {
		response += fmt.Sprintf("\n- %s, with **%d** attack and **%d** durability",
			narrate.Article(item.Name), item.Attack, item.Durability)
	}
	return response, nil
}

func (e *Engine) handleLeaderboard(ctx context.Context, msg *Message) (string, error) {
	return e.Leaderboard(ctx)
}

func (e *Engine) handleTransfer(ctx context.Context, msg *Message) (string, error) {
	return e.Transfer(ctx, msg), nil
}

func (e *Engine) handleBalance(ctx context.Context, msg *Message) (string, error) {
	id, err := game.ParseIdent(msg.Actor, "users")
	if err != nil {
		return "", fmt.Errorf("parsing actor: %w", err)
	}
	p := e.Profile(id)
	return fmt.Sprintf("Your current balance is **%d** IDLE.  You can use `!transfer <amount> <user>` to transfer an amount to another user.", p.Wealth), nil
}
