package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/acctql/internal/model"
)

// createTestStore opens a fresh store under t.TempDir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestAccounts inserts one account per id holding 100.00, owned by
// "owner-<id>".
func insertTestAccounts(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.InsertAccount(context.Background(), model.Account{
			ID:      id,
			Name:    "Account " + id,
			Owner:   "owner-" + id,
			Balance: 10000,
		})
		require.NoError(t, err, "insert %s", id)
	}
}
