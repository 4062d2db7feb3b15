package command

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestConfigValidate(t *testing.T) {
	tests := map[string]struct {
		config Config
		expErr bool
	}{
		"empty config uses defaults": {
			config: Config{Storage: StorageConfig{Database: "state.db"}},
		},
		"valid tick interval": {
			config: Config{
				TickInterval: "10m",
				Storage:      StorageConfig{Database: "state.db"},
			},
		},
		"unparseable tick interval": {
			config: Config{
				TickInterval: "often",
				Storage:      StorageConfig{Database: "state.db"},
			},
			expErr: true,
		},
		"sub-second tick interval": {
			config: Config{
				TickInterval: "100ms",
				Storage:      StorageConfig{Database: "state.db"},
			},
			expErr: true,
		},
		"missing database path": {
			config: Config{},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGameConfigValidate(t *testing.T) {
	tests := map[string]struct {
		config GameConfig
		expErr bool
	}{
		"zero values": {
			config: GameConfig{},
		},
		"full tuning": {
			config: GameConfig{
				Alias:           "idlerpg",
				Capital:         10,
				Experience:      10,
				EncounterChance: 0.05,
				CommitTimeout:   "30s",
				DigestHour:      9,
			},
		},
		"encounter chance above one": {
			config: GameConfig{EncounterChance: 1.5},
			expErr: true,
		},
		"negative encounter chance": {
			config: GameConfig{EncounterChance: -0.1},
			expErr: true,
		},
		"negative capital": {
			config: GameConfig{Capital: -1},
			expErr: true,
		},
		"negative experience": {
			config: GameConfig{Experience: -1},
			expErr: true,
		},
		"digest hour out of range": {
			config: GameConfig{DigestHour: 24},
			expErr: true,
		},
		"unparseable commit timeout": {
			config: GameConfig{CommitTimeout: "soon"},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBusConfigValidate(t *testing.T) {
	tests := map[string]struct {
		config BusConfig
		expErr bool
	}{
		"empty":                 {config: BusConfig{}},
		"valid start timeout":   {config: BusConfig{StartTimeout: "5s"}},
		"invalid start timeout": {config: BusConfig{StartTimeout: "later"}, expErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildEngineConfig(t *testing.T) {
	cfg := &Config{
		Game: GameConfig{
			Alias:           "bot",
			Channels:        []string{"games"},
			Capital:         25,
			EncounterChance: 0.5,
			CommitTimeout:   "10s",
		},
	}

	out := buildEngineConfig(cfg)

	testutil.AssertEqual(t, "alias", out.Alias, "bot")
	testutil.AssertEqual(t, "channel", out.Channels[0], "games")
	testutil.AssertEqual(t, "capital", out.Capital, int64(25))
	testutil.AssertEqual(t, "encounter chance", out.EncounterChance, 0.5)
	testutil.AssertEqual(t, "commit timeout", out.CommitTimeout, 10*time.Second)

	// Unset fields fall back to the defaults.
	testutil.AssertEqual(t, "experience", out.Experience, int64(10))
	testutil.AssertEqual(t, "penalty cooldown", out.PenaltyCooldown, int64(1000))
	testutil.AssertEqual(t, "digest hour", out.DigestHour, 9)
}

func TestBuildCatalog_DefaultsWithoutPaths(t *testing.T) {
	cfg := StorageConfig{Database: "state.db"}

	catalog, err := cfg.BuildCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.Monsters) == 0 || len(catalog.Weapons) == 0 || len(catalog.Rarities) == 0 {
		t.Error("expected the built-in catalog to be populated")
	}
}
