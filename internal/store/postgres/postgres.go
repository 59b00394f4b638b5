// Package postgres implements store.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool. Close releases it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// args converts empty JSON documents to SQL NULL; pgx handles the rest.
func args(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if raw, ok := v.(json.RawMessage); ok {
			out[i] = nullableJSON(raw)
			continue
		}
		out[i] = v
	}
	return out
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
