// Package postgres is a KVStore backed by the kv_entries table created by
// the db migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

const (
	getQuery    = `SELECT value FROM kv_entries WHERE key = $1`
	upsertQuery = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	deleteQuery = `DELETE FROM kv_entries WHERE key = $1`
)

// PgKVStore stores one row per key.
type PgKVStore struct {
	db DB
}

func NewPgKVStore(db DB) *PgKVStore {
	return &PgKVStore{db: db}
}

func (s *PgKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, getQuery, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PgKVStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.Exec(ctx, upsertQuery, key, value); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

func (s *PgKVStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteQuery, key); err != nil {
		return fmt.Errorf("postgres remove %s: %w", key, err)
	}
	return nil
}

func (s *PgKVStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
