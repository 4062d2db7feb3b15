package state

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Op identifies the kind of a patch operation.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// PatchOp is the atomic unit of change notification and persistence
// delta: one add, replace, or remove against a tree path.
type PatchOp struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Diff structurally compares two normalized trees and returns the
// ordered operations that transform base into current. Keys are
// visited in sorted order so the result is deterministic.
func Diff(base, current map[string]any) []PatchOp {
	return diffMaps("", base, current)
}

func diffMaps(prefix string, base, current map[string]any) []PatchOp {
	var ops []PatchOp

	keys := make([]string, 0, len(base)+len(current))
	seen := make(map[string]bool, len(base)+len(current))
	for k := range base {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range current {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := prefix + "/" + EscapeToken(k)
		bv, inBase := base[k]
		cv, inCur := current[k]
		switch {
		case !inCur:
			ops = append(ops, PatchOp{Op: OpRemove, Path: path})
		case !inBase:
			ops = append(ops, PatchOp{Op: OpAdd, Path: path, Value: deepCopy(cv)})
		default:
			bm, bOk := bv.(map[string]any)
			cm, cOk := cv.(map[string]any)
			if bOk && cOk {
				ops = append(ops, diffMaps(path, bm, cm)...)
			} else if !reflect.DeepEqual(bv, cv) {
				ops = append(ops, PatchOp{Op: OpReplace, Path: path, Value: deepCopy(cv)})
			}
		}
	}

	return ops
}

// Rebase prefixes every op path with the given tree path, turning ops
// expressed relative to a subtree into absolute ops.
func Rebase(ops []PatchOp, path string) []PatchOp {
	out := make([]PatchOp, len(ops))
	for i, op := range ops {
		out[i] = op
		out[i].Path = path + op.Path
	}
	return out
}

// Apply validates a patch batch against the tree and then applies it.
// Validation covers the whole batch before any operation runs, so a
// malformed batch leaves the tree untouched.
func (t *Tree) Apply(ops []PatchOp) error {
	if err := t.validate(ops); err != nil {
		return err
	}
	for _, op := range ops {
		var err error
		switch op.Op {
		case OpAdd, OpReplace:
			err = t.Set(op.Path, op.Value)
		case OpRemove:
			err = t.Remove(op.Path)
		}
		if err != nil {
			return fmt.Errorf("applying %s %s: %w", op.Op, op.Path, err)
		}
	}
	return nil
}

// validate checks batch well-formedness. Later operations may depend
// on earlier ones, so structural checks are limited to what holds
// regardless of order: known op kinds, parseable non-root paths, and
// values that normalize.
func (t *Tree) validate(ops []PatchOp) error {
	for i, op := range ops {
		switch op.Op {
		case OpAdd, OpReplace, OpRemove:
		default:
			return fmt.Errorf("op %d: unknown kind %q", i, op.Op)
		}
		parts, err := splitPath(op.Path)
		if err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if len(parts) == 0 {
			return fmt.Errorf("op %d: root path not allowed", i)
		}
		if op.Op != OpRemove {
			if _, err := Normalize(op.Value); err != nil {
				return fmt.Errorf("op %d: bad value: %w", i, err)
			}
		}
	}
	return nil
}

// Render is a compact human-readable form used in logs.
func Render(ops []PatchOp) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%s %s", op.Op, op.Path)
	}
	return strings.Join(parts, ", ")
}
