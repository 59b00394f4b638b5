// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"context"
	"testing"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store/sqlite"
)

// NewTestStore returns a migrated in-memory SQLite store configured the same
// way as production. It is closed when the test completes.
func NewTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}

	t.Cleanup(func() {
		_ = st.Close()
	})

	return st
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
