package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string        `json:"tick_interval"`
	Game         GameConfig    `json:"game"`
	Storage      StorageConfig `json:"storage"`
	Bus          BusConfig     `json:"bus"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("tick_interval must be at least 1 second"))
		}
	}

	el.Add(c.Game.Validate())
	el.Add(c.Storage.Validate())
	el.Add(c.Bus.Validate())

	return el.Err()
}

type GameConfig struct {
	Alias             string   `json:"alias"`
	Channels          []string `json:"channels"`
	Capital           int64    `json:"capital_per_tick"`
	Experience        int64    `json:"experience_per_tick"`
	EncounterChance   float64  `json:"encounter_chance"`
	PenaltyCooldown   int64    `json:"penalty_cooldown"`
	AnnounceThreshold int64    `json:"announce_threshold"`
	CommitTimeout     string   `json:"commit_timeout"`
	DigestHour        int      `json:"digest_hour"`
}

func (c *GameConfig) Validate() error {
	el := errors.NewErrorList()

	if c.EncounterChance < 0 || c.EncounterChance > 1 {
		el.Add(fmt.Errorf("encounter_chance must be between 0 and 1"))
	}
	if c.Capital < 0 {
		el.Add(fmt.Errorf("capital_per_tick cannot be negative"))
	}
	if c.Experience < 0 {
		el.Add(fmt.Errorf("experience_per_tick cannot be negative"))
	}
	if c.DigestHour < 0 || c.DigestHour > 23 {
		el.Add(fmt.Errorf("digest_hour must be between 0 and 23"))
	}
	if c.CommitTimeout != "" {
		if _, err := time.ParseDuration(c.CommitTimeout); err != nil {
			el.Add(fmt.Errorf("parsing commit_timeout: %w", err))
		}
	}

	return el.Err()
}
