package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/FabricLabs/idlerpg/internal/kvstore"
)

// Namespaces are the top-level collections of the game state tree.
var Namespaces = []string{"channels", "players", "services", "users"}

// Store owns the canonical state tree, the diff baseline, and the
// write path to the persistence gateway. All mutations are serialized
// through its mutex so interleaved handlers cannot race on overlapping
// subtrees.
type Store struct {
	mu       sync.Mutex
	tree     *Tree
	baseline map[string]any
	gateway  kvstore.Store
	subs     []func([]PatchOp)
}

// NewStore creates a store with the standard namespaces and an
// initial baseline equal to the empty tree.
func NewStore(gateway kvstore.Store) *Store {
	t := NewTree(Namespaces...)
	return &Store{
		tree:     t,
		baseline: t.Snapshot(),
		gateway:  gateway,
	}
}

// Subscribe registers a listener for patch batches emitted on commit.
// Subscriptions must be made before the engine starts.
func (s *Store) Subscribe(fn func([]PatchOp)) {
	s.subs = append(s.subs, fn)
}

// Get returns the value at path.
func (s *Store) Get(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tree.Get(path)
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Read decodes the value at path into out via JSON.
func (s *Store) Read(path string, out any) error {
	v, ok := s.Get(path)
	if !ok {
		return fmt.Errorf("no value at %s", path)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return json.Unmarshal(raw, out)
}

// Keys returns the sorted child keys of the collection at path.
func (s *Store) Keys(path string) []string {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set writes value at path in the live tree.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Set(path, value)
}

// Apply runs a validated patch batch against the live tree.
func (s *Store) Apply(ops []PatchOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Apply(ops)
}

// Pending returns the outstanding diff against the last committed
// baseline without committing.
func (s *Store) Pending() []PatchOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Diff(s.baseline, s.tree.Root())
}

// Commit persists the whole tree plus each top-level namespace as one
// all-or-nothing batch, then emits the accumulated patch delta and
// re-baselines. A failed batch write leaves the baseline untouched so
// the next commit recomputes the full outstanding delta.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.tree.Root()
	full, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}

	ops := []kvstore.BatchOp{{Type: kvstore.OpPut, Key: "/", Value: full}}
	for _, ns := range Namespaces {
		raw, err := json.Marshal(root[ns])
		if err != nil {
			return fmt.Errorf("serializing %s: %w", ns, err)
		}
		ops = append(ops, kvstore.BatchOp{Type: kvstore.OpPut, Key: "/" + ns, Value: raw})
	}

	if err := s.gateway.Batch(ctx, ops); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}

	patches := Diff(s.baseline, root)
	if len(patches) > 0 {
		for _, fn := range s.subs {
			fn(patches)
		}
		s.baseline = s.tree.Snapshot()
	}

	return nil
}

// Restore loads the persisted root document back into the tree, used
// at startup. A missing key is not an error; the engine starts from
// an empty tree.
func (s *Store) Restore(ctx context.Context) error {
	raw, err := s.gateway.Get(ctx, "/")
	if err == kvstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ns := range Namespaces {
		if _, ok := root[ns]; !ok {
			root[ns] = map[string]any{}
		}
	}
	s.tree.root = root
	s.baseline = s.tree.Snapshot()
	return nil
}

// Close closes the persistence gateway.
func (s *Store) Close() error {
	return s.gateway.Close()
}
