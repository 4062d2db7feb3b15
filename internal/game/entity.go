package game

import (
	"fmt"
	"math"
	"strings"
)

// Presence is a user's status as reported by a service adapter.
type Presence string

const (
	PresenceOnline      Presence = "online"
	PresenceOffline     Presence = "offline"
	PresenceRegistering Presence = "registering"
)

const (
	// MaxHealth and MaxStamina are the resting maxima for any entity.
	MaxHealth  = 100
	MaxStamina = 100

	// InventoryCap is the most items an entity can carry.
	InventoryCap = 5
)

// Item is a piece of equipment. Items only exist inside an owning
// entity's inventory or weapon slot; they are never persisted on
// their own.
type Item struct {
	InstanceId string `json:"instance_id,omitempty"`
	Name       string `json:"name"`
	Attack     int    `json:"attack"`
	Durability int    `json:"durability"`
}

// Entity is the base stat-bearing game object. Players and monsters
// are both entities; players additionally carry presence and cooldown
// driven by their user record.
type Entity struct {
	Id         string          `json:"id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Name       string          `json:"name,omitempty"`
	Health     int             `json:"health,omitempty"`
	Stamina    int             `json:"stamina,omitempty"`
	Wealth     int64           `json:"wealth,omitempty"`
	Experience int64           `json:"experience,omitempty"`
	Initiative int             `json:"initiative,omitempty"`
	Luck       int             `json:"luck,omitempty"`
	Strength   int             `json:"strength,omitempty"`
	Weapon     *Item           `json:"weapon,omitempty"`
	Inventory  []Item          `json:"inventory,omitempty"`
	Effects    map[string]bool `json:"effects,omitempty"`
	Cooldown   int64           `json:"cooldown,omitempty"`
	Presence   Presence        `json:"presence,omitempty"`
}

// NewEntity creates an entity with full health and stamina and an
// empty inventory.
func NewEntity(name string) *Entity {
	return &Entity{
		Name:      name,
		Health:    MaxHealth,
		Stamina:   MaxStamina,
		Inventory: []Item{},
		Effects:   map[string]bool{},
	}
}

// Clone returns a deep copy. Encounter generation and battles operate
// on copies so callers keep an unmodified view of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Weapon != nil {
		w := *e.Weapon
		c.Weapon = &w
	}
	c.Inventory = make([]Item, len(e.Inventory))
	copy(c.Inventory, e.Inventory)
	c.Effects = make(map[string]bool, len(e.Effects))
	for k, v := range e.Effects {
		c.Effects[k] = v
	}
	return &c
}

// DerivedStats are values computed from an entity's raw stats.
// Deriving them never mutates the entity.
type DerivedStats struct {
	Level  int
	Luck   int
	Attack int
}

// Level maps experience to a level: floor(ln(experience/10)) for
// positive experience, floored at zero so early-game entities are
// level 0 rather than negative.
func Level(experience int64) int {
	if experience <= 0 {
		return 0
	}
	l := int(math.Floor(math.Log(float64(experience) / 10)))
	if l < 0 {
		return 0
	}
	return l
}

// DeriveStats computes the derived stat block for an entity. Luck is
// doubled while the entity is blessed. Attack falls back to 1 when
// unarmed.
func DeriveStats(e *Entity) DerivedStats {
	d := DerivedStats{
		Level:  Level(e.Experience),
		Luck:   e.Luck,
		Attack: 1,
	}
	if e.Effects["blessed"] {
		d.Luck = e.Luck * 2
	}
	if e.Weapon != nil {
		d.Attack = e.Weapon.Attack
	}
	return d
}

// Ident is a structured identifier. The string form used for storage
// paths is service/kind/local, derived only at the I/O boundary.
type Ident struct {
	Service string
	Kind    string
	Local   string
}

// DefaultService is assumed for bare local names with no explicit
// namespace.
const DefaultService = "local"

// ParseIdent parses an identifier string into its parts. A bare name
// is qualified into the default service under the given kind.
func ParseIdent(s, kind string) (Ident, error) {
	if s == "" {
		return Ident{}, fmt.Errorf("empty identifier")
	}
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		return Ident{Service: DefaultService, Kind: kind, Local: parts[0]}, nil
	case 3:
		return Ident{Service: parts[0], Kind: parts[1], Local: parts[2]}, nil
	default:
		return Ident{}, fmt.Errorf("malformed identifier %q", s)
	}
}

// String renders the canonical service/kind/local form.
func (id Ident) String() string {
	return strings.Join([]string{id.Service, id.Kind, id.Local}, "/")
}
