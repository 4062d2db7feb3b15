package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/storage"
)

type StorageConfig struct {
	Database string                         `json:"database"`
	Monsters AssetConfig[*game.MonsterSpec] `json:"monsters"`
	Weapons  AssetConfig[*game.WeaponSpec]  `json:"weapons"`
	Rarities AssetConfig[*game.RaritySpec]  `json:"rarities"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Database == "" {
		el.Add(fmt.Errorf("database path is required"))
	}

	el.Add(c.Monsters.Validate("monsters"))
	el.Add(c.Weapons.Validate("weapons"))
	el.Add(c.Rarities.Validate("rarities"))

	return el.Err()
}

// BuildCatalog assembles the content catalog from the configured
// asset paths, falling back to the built-in set when none are given.
func (c *StorageConfig) BuildCatalog() (*game.Catalog, error) {
	catalog := game.DefaultCatalog()

	if c.Monsters.Path != "" {
		st, err := c.Monsters.BuildFileStore()
		if err != nil {
			return nil, fmt.Errorf("creating monster store: %w", err)
		}
		catalog.Monsters = values(st.GetAll())
	}
	if c.Weapons.Path != "" {
		st, err := c.Weapons.BuildFileStore()
		if err != nil {
			return nil, fmt.Errorf("creating weapon store: %w", err)
		}
		catalog.Weapons = values(st.GetAll())
	}
	if c.Rarities.Path != "" {
		st, err := c.Rarities.BuildFileStore()
		if err != nil {
			return nil, fmt.Errorf("creating rarity store: %w", err)
		}
		catalog.Rarities = values(st.GetAll())
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return catalog, nil
}

func values[T storage.ValidatingSpec](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return nil
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
