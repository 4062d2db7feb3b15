package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/FabricLabs/idlerpg/internal/state"
)

// EncounterType tags the outcome of an encounter roll.
type EncounterType string

const (
	EncounterBlessing EncounterType = "blessing"
	EncounterMonster  EncounterType = "monster"
	EncounterItem     EncounterType = "item"
)

// Loot and item generation bounds.
const (
	MinLootWorth = 10
	MaxLootWorth = 30

	MinItemDurability = 20
	MaxItemDurability = 50
)

// Encounter is the structured result of one encounter. Entity is the
// mutated copy of the input; Patches describe exactly the mutations
// made to it, expressed relative to the entity's own subtree.
type Encounter struct {
	Type     EncounterType
	Entity   *Entity
	Monster  *Entity
	Volleys  int
	Loot     int64
	Item     *Item
	Equipped bool
	Skipped  bool
	Patches  []state.PatchOp
}

// Roller generates encounters from a content catalog and a random
// source. Injecting the source keeps outcomes reproducible in tests.
type Roller struct {
	catalog *Catalog
	rnd     *rand.Rand
}

func NewRoller(catalog *Catalog, rnd *rand.Rand) (*Roller, error) {
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &Roller{catalog: catalog, rnd: rnd}, nil
}

// Generate rolls one encounter against a copy of the given entity.
// The caller's entity is never mutated.
func (r *Roller) Generate(e *Entity) (*Encounter, error) {
	enc := &Encounter{
		Type:   pickType(r.rnd.Float64()),
		Entity: e.Clone(),
	}

	before, err := state.Normalize(enc.Entity)
	if err != nil {
		return nil, fmt.Errorf("snapshotting entity: %w", err)
	}

	switch enc.Type {
	case EncounterBlessing:
		r.bless(enc)
	case EncounterMonster:
		r.monster(enc)
	case EncounterItem:
		r.item(enc)
	}

	after, err := state.Normalize(enc.Entity)
	if err != nil {
		return nil, fmt.Errorf("sampling entity: %w", err)
	}

	enc.Patches = state.Diff(asMap(before), asMap(after))
	return enc, nil
}

// pickType maps a uniform draw onto the weighted outcome categories:
// item 3/6, monster 2/6, blessing 1/6.
func pickType(u float64) EncounterType {
	switch {
	case u < 3.0/6.0:
		return EncounterItem
	case u < 5.0/6.0:
		return EncounterMonster
	default:
		return EncounterBlessing
	}
}

func (r *Roller) bless(enc *Encounter) {
	e := enc.Entity
	e.Health = MaxHealth
	e.Stamina = MaxStamina
	if e.Effects == nil {
		e.Effects = map[string]bool{}
	}
	e.Effects["blessed"] = true
}

func (r *Roller) monster(enc *Encounter) {
	spec := r.catalog.Monsters[r.rnd.Intn(len(r.catalog.Monsters))]

	enc.Monster = &Entity{
		Id:         uuid.NewString(),
		Type:       "Monster",
		Name:       spec.Name,
		Health:     spec.Health,
		Initiative: spec.Initiative,
		Weapon:     &Item{Name: spec.Name, Attack: spec.Attack},
	}

	enc.Volleys = Fight(enc.Entity, enc.Monster)

	enc.Loot = int64(r.between(MinLootWorth, MaxLootWorth))
	enc.Entity.Wealth += enc.Loot
}

func (r *Roller) item(enc *Encounter) {
	template := r.catalog.Weapons[r.rnd.Intn(len(r.catalog.Weapons))]
	rarity := r.catalog.Rarities[r.rnd.Intn(len(r.catalog.Rarities))]

	enc.Item = &Item{
		InstanceId: uuid.NewString(),
		Name:       rarity.Name + " " + template.Name,
		Attack:     template.Attack,
		Durability: r.between(MinItemDurability, MaxItemDurability),
	}

	e := enc.Entity
	switch {
	case e.Weapon == nil:
		e.Weapon = enc.Item
		enc.Equipped = true
	case len(e.Inventory) < InventoryCap:
		e.Inventory = append(e.Inventory, *enc.Item)
	default:
		// Overloaded: the find is dropped and the pack spills one
		// slot. The first four entries survive.
		enc.Skipped = true
		e.Inventory = e.Inventory[:InventoryCap-1]
	}
}

// between returns a uniform integer in [min, max].
func (r *Roller) between(min, max int) int {
	return r.rnd.Intn(max-min+1) + min
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
