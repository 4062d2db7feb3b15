package registry

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/FabricLabs/idlerpg/internal/game"
	"github.com/FabricLabs/idlerpg/internal/state"
)

// User is a network client known to a service.
type User struct {
	Id       string        `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Presence game.Presence `json:"presence,omitempty"`
	Players  []string      `json:"players,omitempty"`
}

// Channel is a chat room with a member set.
type Channel struct {
	Id      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Service is an external membership source.
type Service struct {
	Name     string         `json:"name,omitempty"`
	Users    map[string]any `json:"users,omitempty"`
	Channels map[string]any `json:"channels,omitempty"`
}

// Registry upserts users, players, channels, and services into the
// state tree. Every register operation merges incoming fields over
// the prior record and returns the record as read back from the tree,
// so callers observe exactly what was stored.
type Registry struct {
	store *state.Store
}

func NewRegistry(store *state.Store) *Registry {
	return &Registry{store: store}
}

// UserPath returns the tree path for a user identifier.
func UserPath(id game.Ident) string {
	return state.Path("users", id.String())
}

// PlayerPath returns the tree path for the player bound to a user
// identifier.
func PlayerPath(id game.Ident) string {
	return state.Path("players", id.String())
}

// ChannelPath returns the tree path for a channel identifier.
func ChannelPath(id game.Ident) string {
	return state.Path("channels", id.String())
}

// RegisterUser upserts a user record. The user must carry an id or a
// name; bare identifiers are qualified into the local service.
func (r *Registry) RegisterUser(u User) (User, error) {
	key := u.Id
	if key == "" {
		key = u.Name
	}
	if key == "" {
		return User{}, fmt.Errorf("user must have an id or name")
	}

	id, err := game.ParseIdent(key, "users")
	if err != nil {
		return User{}, fmt.Errorf("parsing user id: %w", err)
	}
	u.Id = id.String()
	if u.Name == "" {
		u.Name = id.Local
	}

	var out User
	if err := r.upsert(UserPath(id), u, &out); err != nil {
		return User{}, fmt.Errorf("registering user %s: %w", u.Id, err)
	}
	return out, nil
}

// RegisterPlayer upserts a player entity keyed by its owning user
// identifier. A name is required.
func (r *Registry) RegisterPlayer(p game.Entity) (game.Entity, error) {
	if p.Name == "" && p.Id == "" {
		return game.Entity{}, fmt.Errorf("player must have a name")
	}

	key := p.Id
	if key == "" {
		key = p.Name
	}
	id, err := game.ParseIdent(key, "users")
	if err != nil {
		return game.Entity{}, fmt.Errorf("parsing player id: %w", err)
	}
	p.Id = id.String()
	if p.Name == "" {
		p.Name = id.Local
	}
	p.Type = "Player"

	var out game.Entity
	if err := r.upsert(PlayerPath(id), p, &out); err != nil {
		return game.Entity{}, fmt.Errorf("registering player %s: %w", p.Id, err)
	}

	// Track the player under its user record.
	userPath := UserPath(id)
	if _, ok := r.store.Get(userPath); !ok {
		if _, err := r.RegisterUser(User{Id: id.String(), Presence: game.PresenceRegistering}); err != nil {
			return game.Entity{}, err
		}
	}
	if err := r.store.Set(userPath+"/players", []string{id.String()}); err != nil {
		return game.Entity{}, fmt.Errorf("linking player %s: %w", p.Id, err)
	}

	return out, nil
}

// RegisterChannel upserts a channel record.
func (r *Registry) RegisterChannel(c Channel) (Channel, error) {
	el := errors.NewErrorList()
	if c.Id == "" {
		el.Add(fmt.Errorf("channel must have an id"))
	}
	if err := el.Err(); err != nil {
		return Channel{}, err
	}

	id, err := game.ParseIdent(c.Id, "channels")
	if err != nil {
		return Channel{}, fmt.Errorf("parsing channel id: %w", err)
	}
	c.Id = id.String()
	if c.Name == "" {
		c.Name = id.Local
	}

	var out Channel
	if err := r.upsert(ChannelPath(id), c, &out); err != nil {
		return Channel{}, fmt.Errorf("registering channel %s: %w", c.Id, err)
	}

	// The member set survives re-registration; initialize it only on
	// first sight.
	if out.Members == nil {
		if err := r.store.Set(ChannelPath(id)+"/members", []string{}); err != nil {
			return Channel{}, fmt.Errorf("initializing members for %s: %w", c.Id, err)
		}
		out.Members = []string{}
	}
	return out, nil
}

// RegisterService upserts a service record with empty user and
// channel namespaces.
func (r *Registry) RegisterService(s Service) (Service, error) {
	if s.Name == "" {
		return Service{}, fmt.Errorf("service must have a name")
	}

	path := state.Path("services", s.Name)
	var out Service
	if err := r.upsert(path, s, &out); err != nil {
		return Service{}, fmt.Errorf("registering service %s: %w", s.Name, err)
	}

	if out.Users == nil {
		if err := r.store.Set(path+"/users", map[string]any{}); err != nil {
			return Service{}, fmt.Errorf("initializing service %s: %w", s.Name, err)
		}
		out.Users = map[string]any{}
	}
	if out.Channels == nil {
		if err := r.store.Set(path+"/channels", map[string]any{}); err != nil {
			return Service{}, fmt.Errorf("initializing service %s: %w", s.Name, err)
		}
		out.Channels = map[string]any{}
	}
	return out, nil
}

// upsert reads the prior record at path, shallow-merges the incoming
// record over it field by field, writes the merge back, and decodes
// the stored result into out. Fields absent from the incoming record
// (zero-valued, dropped by omitempty) never clobber prior fields.
func (r *Registry) upsert(path string, incoming any, out any) error {
	prior := map[string]any{}
	if v, ok := r.store.Get(path); ok {
		if m, isMap := v.(map[string]any); isMap {
			prior = m
		}
	}

	norm, err := state.Normalize(incoming)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	inc, ok := norm.(map[string]any)
	if !ok {
		return fmt.Errorf("record must encode to an object")
	}

	for k, v := range inc {
		prior[k] = v
	}

	if err := r.store.Set(path, prior); err != nil {
		return fmt.Errorf("storing record: %w", err)
	}
	return r.store.Read(path, out)
}
