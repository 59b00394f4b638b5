// Package sqlite implements store.Store on an embedded SQLite database
// (modernc.org/sqlite). Timestamps are stored as fixed-width UTC text, UUIDs
// and JSON documents as TEXT.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/migrations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/db"

	"github.com/google/uuid"
)

// timeLayout is fixed width so stored values compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var parseLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
}

// Store is the SQLite-backed store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated database.
func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// Open opens dsn, applies migrations and returns a ready store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqlDB, err := db.OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return New(sqlDB), nil
}

// Migrate applies the embedded SQLite goose migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	return db.MigrateSQLite(ctx, sqlDB, migrations.SQLite())
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholder(int) string { return "?" }

func now() string { return formatTime(time.Now()) }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// args converts Go values into the TEXT representations used by this schema.
func args(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case uuid.UUID:
			out[i] = t.String()
		case *uuid.UUID:
			if t == nil {
				out[i] = nil
			} else {
				out[i] = t.String()
			}
		case time.Time:
			out[i] = formatTime(t)
		case *time.Time:
			if t == nil {
				out[i] = nil
			} else {
				out[i] = formatTime(*t)
			}
		case *string:
			out[i] = deref(t)
		case *int:
			out[i] = deref(t)
		case *int64:
			out[i] = deref(t)
		case *float64:
			out[i] = deref(t)
		case *bool:
			out[i] = deref(t)
		case json.RawMessage:
			if len(t) == 0 {
				out[i] = nil
			} else {
				out[i] = string(t)
			}
		default:
			out[i] = v
		}
	}
	return out
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// timeCol scans a NOT NULL timestamp column.
type timeCol struct{ dst *time.Time }

func (c timeCol) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = time.Time{}
		return nil
	case time.Time:
		*c.dst = v.UTC()
		return nil
	case string:
		t, err := parseTime(v)
		*c.dst = t
		return err
	case []byte:
		t, err := parseTime(string(v))
		*c.dst = t
		return err
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

// nullTimeCol scans a nullable timestamp column.
type nullTimeCol struct{ dst **time.Time }

func (c nullTimeCol) Scan(src any) error {
	if src == nil {
		*c.dst = nil
		return nil
	}
	var t time.Time
	if err := (timeCol{dst: &t}).Scan(src); err != nil {
		return err
	}
	*c.dst = &t
	return nil
}

// nullUUIDCol scans a nullable UUID column.
type nullUUIDCol struct{ dst **uuid.UUID }

func (c nullUUIDCol) Scan(src any) error {
	var n uuid.NullUUID
	if err := n.Scan(src); err != nil {
		return err
	}
	if !n.Valid {
		*c.dst = nil
		return nil
	}
	id := n.UUID
	*c.dst = &id
	return nil
}

// jsonCol scans a nullable JSON document column.
type jsonCol struct{ dst *json.RawMessage }

func (c jsonCol) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = nil
	case string:
		*c.dst = json.RawMessage(v)
	case []byte:
		*c.dst = append(json.RawMessage(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into json", src)
	}
	return nil
}
