package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("key not found")

// BatchOp is one write in an all-or-nothing batch.
type BatchOp struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// OpPut is the only batch op type currently defined.
const OpPut = "put"

// Store is the persistence gateway the engine writes through. Flush
// is a destructive reset primitive that discards all stored data.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Batch(ctx context.Context, ops []BatchOp) error
	Flush(ctx context.Context) error
	Close() error
}
