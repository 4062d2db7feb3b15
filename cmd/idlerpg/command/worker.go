package command

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/pixil98/go-service"

	"github.com/FabricLabs/idlerpg/internal/driver"
	"github.com/FabricLabs/idlerpg/internal/engine"
	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/kvstore"
	"github.com/FabricLabs/idlerpg/internal/narrate"
	"github.com/FabricLabs/idlerpg/internal/registry"
	localservice "github.com/FabricLabs/idlerpg/internal/service"
	"github.com/FabricLabs/idlerpg/internal/state"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Event bus
	busServer, err := cfg.Bus.BuildServer()
	if err != nil {
		return nil, fmt.Errorf("creating bus: %w", err)
	}

	// Persistence gateway and state store
	gateway, err := kvstore.NewSqliteStore(cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("creating persistence gateway: %w", err)
	}
	store := state.NewStore(gateway)
	reg := registry.NewRegistry(store)

	// Content catalog and encounter roller
	catalog, err := cfg.Storage.BuildCatalog()
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	roller, err := game.NewRoller(catalog, rnd)
	if err != nil {
		return nil, fmt.Errorf("creating roller: %w", err)
	}

	narrator, err := narrate.New()
	if err != nil {
		return nil, fmt.Errorf("creating narrator: %w", err)
	}

	engineCfg := buildEngineConfig(cfg)
	local := localservice.NewLocal(game.DefaultService)
	eng := engine.New(engineCfg, store, reg, roller, narrator, busServer,
		[]engine.Service{local}, rnd)

	// Tick driver
	var driverOpts []driver.GameDriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	gameDriver := driver.NewGameDriver([]driver.Manager{eng}, driverOpts...)

	return service.WorkerList{
		"bus":    busServer,
		"engine": eng,
		"driver": gameDriver,
	}, nil
}

func buildEngineConfig(cfg *Config) engine.Config {
	out := engine.DefaultConfig()

	if cfg.Game.Alias != "" {
		out.Alias = cfg.Game.Alias
	}
	if len(cfg.Game.Channels) > 0 {
		out.Channels = cfg.Game.Channels
	}
	if cfg.Game.Capital > 0 {
		out.Capital = cfg.Game.Capital
	}
	if cfg.Game.Experience > 0 {
		out.Experience = cfg.Game.Experience
	}
	if cfg.Game.EncounterChance > 0 {
		out.EncounterChance = cfg.Game.EncounterChance
	}
	if cfg.Game.PenaltyCooldown > 0 {
		out.PenaltyCooldown = cfg.Game.PenaltyCooldown
	}
	if cfg.Game.AnnounceThreshold > 0 {
		out.AnnounceThreshold = cfg.Game.AnnounceThreshold
	}
	if cfg.Game.CommitTimeout != "" {
		if d, err := time.ParseDuration(cfg.Game.CommitTimeout); err == nil {
			out.CommitTimeout = d
		}
	}
	if cfg.Game.DigestHour > 0 {
		out.DigestHour = cfg.Game.DigestHour
	}

	return out
}
