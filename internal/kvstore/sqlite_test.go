package kvstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func testSqliteStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStore_GetSet(t *testing.T) {
	store := testSqliteStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "/"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "/", []byte(`{"players":{}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get(ctx, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"players":{}}`)) {
		t.Errorf("got %q, expected stored value", got)
	}

	// Overwrite wins.
	if err := store.Set(ctx, "/", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = store.Get(ctx, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte(`{}`)) {
		t.Errorf("got %q, expected overwritten value", got)
	}
}

func TestSqliteStore_Batch(t *testing.T) {
	store := testSqliteStore(t)
	ctx := context.Background()

	err := store.Batch(ctx, []BatchOp{
		{Type: OpPut, Key: "/", Value: []byte(`{"a":1}`)},
		{Type: OpPut, Key: "/players", Value: []byte(`{"b":2}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for key, exp := range map[string]string{"/": `{"a":1}`, "/players": `{"b":2}`} {
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error reading %q: %v", key, err)
		}
		if !bytes.Equal(got, []byte(exp)) {
			t.Errorf("key %q: got %q, expected %q", key, got, exp)
		}
	}
}

func TestSqliteStore_BatchRejectsUnknownOp(t *testing.T) {
	store := testSqliteStore(t)

	err := store.Batch(context.Background(), []BatchOp{
		{Type: "delete", Key: "/", Value: nil},
	})
	if err == nil {
		t.Error("expected error for unsupported op type")
	}
}

func TestSqliteStore_Flush(t *testing.T) {
	store := testSqliteStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "/", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "/"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after flush, got %v", err)
	}
}

func TestSqliteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := NewSqliteStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Set(ctx, "/", []byte(`{"players":{"alice":{}}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := NewSqliteStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"players":{"alice":{}}}`)) {
		t.Errorf("got %q after reopen", got)
	}
}
