package state

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EscapeToken escapes path separators inside a single path segment so
// an identifier containing "/" cannot be read as multiple segments.
// Uses JSON-pointer escaping: "~" becomes "~0", "/" becomes "~1".
func EscapeToken(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Path joins segments into an absolute tree path, escaping each
// segment.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = EscapeToken(s)
	}
	return "/" + strings.Join(escaped, "/")
}

func splitPath(path string) ([]string, error) {
	if path == "" || path == "/" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path %q must start with /", path)
	}
	parts := strings.Split(path[1:], "/")
	for i, p := range parts {
		parts[i] = UnescapeToken(p)
	}
	return parts, nil
}

// Tree is a nested mapping from namespace path to value. All values
// are held in normalized JSON form (maps, slices, float64, string,
// bool, nil) so structural comparison is well defined.
type Tree struct {
	root map[string]any
}

// NewTree creates a tree with the given top-level namespaces present
// as empty collections.
func NewTree(namespaces ...string) *Tree {
	root := make(map[string]any, len(namespaces))
	for _, ns := range namespaces {
		root[ns] = map[string]any{}
	}
	return &Tree{root: root}
}

// Root exposes the live root map. Callers must not retain references
// across mutations.
func (t *Tree) Root() map[string]any {
	return t.root
}

// Get returns the value at path, or false if any segment is missing.
func (t *Tree) Get(path string) (any, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = t.root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set normalizes value to JSON form and writes it at path, creating
// intermediate maps as needed.
func (t *Tree) Set(path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("cannot replace tree root")
	}

	norm, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("normalizing value for %s: %w", path, err)
	}

	cur := t.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = norm
	return nil
}

// Remove deletes the value at path. Missing paths are a no-op.
func (t *Tree) Remove(path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("cannot remove tree root")
	}
	cur := t.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
	return nil
}

// Snapshot returns a deep copy of the tree's root, usable as a diff
// baseline.
func (t *Tree) Snapshot() map[string]any {
	return deepCopyMap(t.root)
}

// Normalize round-trips a value through JSON so that structurally
// equal values compare equal regardless of their Go types.
func Normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}
