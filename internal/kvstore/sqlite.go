package kvstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

// SqliteStore is a Store backed by a single-table sqlite database.
// Values are zstd-compressed on the way in; the state tree serializes
// to highly repetitive JSON.
type SqliteStore struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSqliteStore opens (creating if needed) the database at path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &SqliteStore{db: db, enc: enc, dec: dec}, nil
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	out, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %q: %w", key, err)
	}
	return out, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	blob := s.enc.EncodeAll(value, nil)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, blob)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Batch applies all ops in a single transaction.
func (s *SqliteStore) Batch(ctx context.Context, ops []BatchOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	for i, op := range ops {
		if op.Type != OpPut {
			return fmt.Errorf("batch op %d: unsupported type %q", i, op.Type)
		}
		blob := s.enc.EncodeAll(op.Value, nil)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, op.Key, blob)
		if err != nil {
			return fmt.Errorf("batch op %d (%q): %w", i, op.Key, err)
		}
	}

	return tx.Commit()
}

// Flush discards every stored key.
func (s *SqliteStore) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("flushing: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
