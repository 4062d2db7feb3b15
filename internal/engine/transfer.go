package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-log"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/registry"
	"github.com/FabricLabs/idlerpg/internal/state"
)

const transferUsage = "Command format: `!transfer <amount> <user>`"

// Transfer mediates a wealth transfer between two players. Every
// check runs before any mutation; failures come back as user-facing
// strings and leave both balances untouched. On success both balance
// patches apply atomically, the result is committed, and the target
// is notified out-of-band.
func (e *Engine) Transfer(ctx context.Context, msg *Message) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := log.GetLogger(ctx)

	if msg.Object == "" {
		return `Transfer message must have property "object".`
	}
	if msg.Actor == "" {
		return `Transfer message must have property "actor".`
	}

	parts := strings.Fields(msg.Object)
	if len(parts) < 3 {
		return transferUsage
	}

	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || amount < 0 {
		return transferUsage
	}

	origin := msg.Origin
	if origin == "" {
		origin = game.DefaultService
	}

	actorId, err := game.ParseIdent(msg.Actor, "users")
	if err != nil {
		return fmt.Sprintf("Could not understand sender %q.", msg.Actor)
	}
	targetId := game.Ident{Service: strings.ToLower(origin), Kind: "users", Local: parts[2]}

	if actorId.Local == targetId.Local {
		return "You cannot transfer money to yourself."
	}

	actor := e.Profile(actorId)
	if actor.Wealth == 0 {
		return "You have no wealth to transfer."
	}
	if actor.Wealth-amount < 0 {
		return fmt.Sprintf("You do not have that amount.  You'll need **%d** more IDLE to proceed with this transfer.", amount-actor.Wealth)
	}

	// Both sides must be registered before the balances move.
	if _, err := e.reg.RegisterPlayer(actor); err != nil {
		logger.WithError(err).Error("registering transfer actor")
		return fmt.Sprintf("Could not complete your transfer request at this time: %v", err)
	}
	target, err := e.reg.RegisterPlayer(game.Entity{Id: targetId.String(), Name: targetId.Local})
	if err != nil {
		logger.WithError(err).Error("registering transfer target")
		return fmt.Sprintf("Couldn't find %s.", parts[2])
	}

	ops := []state.PatchOp{
		{Op: state.OpReplace, Path: registry.PlayerPath(actorId) + "/wealth", Value: actor.Wealth - amount},
		{Op: state.OpReplace, Path: registry.PlayerPath(targetId) + "/wealth", Value: target.Wealth + amount},
	}
	if err := e.store.Apply(ops); err != nil {
		logger.WithError(err).Error("applying transfer")
		return fmt.Sprintf("Could not complete your transfer request at this time: %v", err)
	}

	if err := e.commit(ctx); err != nil {
		logger.WithError(err).Error("committing transfer")
		return fmt.Sprintf("Could not complete your transfer request at this time: %v", err)
	}

	text, err := e.narrator.Render("transfer-whisper", map[string]any{
		"From":   actor.Name,
		"FromId": actor.Id,
		"Amount": amount,
	})
	if err == nil {
		e.Whisper(ctx, target.Id, text)
	}

	return "Balance transferred successfully!"
}
