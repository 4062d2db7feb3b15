package driver

import (
	"context"
	"time"

	"github.com/pixil98/go-log"
)

const (
	DefaultTickLength = time.Minute * 10
)

type Manager interface {
	Tick(context.Context) error
}

// GameDriver runs each manager's Tick on a fixed interval. A manager
// returning an error is logged and does not stop the loop or the
// timer; the reward cycle must survive any single failure.
type GameDriver struct {
	tickLength time.Duration
	managers   []Manager
}

func NewGameDriver(managers []Manager, opts ...GameDriverOpt) *GameDriver {
	d := &GameDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *GameDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

func (d *GameDriver) Tick(ctx context.Context) {
	logger := log.GetLogger(ctx)
	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			logger.WithError(err).Error("ticking manager")
		}
	}
}
