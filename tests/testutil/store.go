package testutil

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/localstore"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *localstore.SQLiteStore {
	t.Helper()

	s, err := localstore.NewSQLiteStore(":memory:", log.New(io.Discard))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
