package game

import "fmt"

// MonsterSpec is a catalog entry describing a monster template.
type MonsterSpec struct {
	Name       string `json:"name"`
	Health     int    `json:"health"`
	Initiative int    `json:"initiative"`
	Attack     int    `json:"attack"`
}

func (m *MonsterSpec) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("monster name is required")
	}
	if m.Health <= 0 {
		return fmt.Errorf("monster %q: health must be positive", m.Name)
	}
	return nil
}

// WeaponSpec is a catalog entry describing a weapon template.
type WeaponSpec struct {
	Name   string `json:"name"`
	Attack int    `json:"attack"`
}

func (w *WeaponSpec) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("weapon name is required")
	}
	if w.Attack < 0 {
		return fmt.Errorf("weapon %q: attack cannot be negative", w.Name)
	}
	return nil
}

// RaritySpec is a catalog entry naming a rarity prefix for found items.
type RaritySpec struct {
	Name string `json:"name"`
}

func (r *RaritySpec) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rarity name is required")
	}
	return nil
}

// Catalog holds the fixed content templates encounters draw from.
type Catalog struct {
	Monsters []*MonsterSpec
	Weapons  []*WeaponSpec
	Rarities []*RaritySpec
}

func (c *Catalog) Validate() error {
	if len(c.Monsters) == 0 {
		return fmt.Errorf("catalog has no monsters")
	}
	if len(c.Weapons) == 0 {
		return fmt.Errorf("catalog has no weapons")
	}
	if len(c.Rarities) == 0 {
		return fmt.Errorf("catalog has no rarities")
	}
	return nil
}

// DefaultCatalog returns the built-in content set, used when no asset
// path is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Monsters: []*MonsterSpec{
			{Name: "rat", Health: 20, Initiative: 1, Attack: 1},
			{Name: "goblin", Health: 35, Initiative: 2, Attack: 2},
			{Name: "wolf", Health: 45, Initiative: 3, Attack: 3},
			{Name: "skeleton", Health: 60, Initiative: 2, Attack: 4},
			{Name: "troll", Health: 90, Initiative: 5, Attack: 6},
		},
		Weapons: []*WeaponSpec{
			{Name: "dagger", Attack: 2},
			{Name: "shortsword", Attack: 4},
			{Name: "mace", Attack: 5},
			{Name: "longsword", Attack: 6},
			{Name: "battleaxe", Attack: 8},
		},
		Rarities: []*RaritySpec{
			{Name: "rusty"},
			{Name: "common"},
			{Name: "polished"},
			{Name: "fine"},
			{Name: "legendary"},
		},
	}
}
