package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acctql/internal/model"
)

const testSeed = `
accounts:
  - id: acc-001
    name: Operating
    owner: alice
    balance: 125000
  - id: acc-002
    name: Savings
    owner: alice
    balance: 5000
    status: frozen
transactions:
  - id: tx-seed-1
    account_id: acc-001
    amount: 125000
    memo: opening balance
`

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(testSeed))
	require.NoError(t, err)

	require.Len(t, seed.Accounts, 2)
	assert.Equal(t, model.StatusFrozen, seed.Accounts[1].Status)
	assert.Equal(t, int64(125000), seed.Accounts[0].Balance)
	require.Len(t, seed.Transactions, 1)
	assert.Equal(t, "opening balance", seed.Transactions[0].Memo)
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "accounts:\n  - id: a\n    colour: red\n", "colour"},
		{"missing id", "accounts:\n  - name: x\n", "id is required"},
		{"bad status", "accounts:\n  - id: a\n    status: gone\n", "invalid status"},
		{"tx without account", "transactions:\n  - id: t\n", "account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSeed_EmptyDocument(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Accounts)
}

func TestLoadSeedFile(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0644))

	res, err := s.LoadSeedFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Accounts: 2, Transactions: 1}, res)

	a, err := s.ReadAccount(context.Background(), "acc-001")
	require.NoError(t, err)
	assert.Equal(t, int64(125000), a.Balance, "seeded transactions do not move balances")

	tx, err := s.ReadTransaction(context.Background(), "tx-seed-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-001", tx.AccountID)
}

func TestLoadSeed_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	seed := &Seed{
		Accounts: []model.Account{{ID: "a", Name: "A"}, {ID: "a", Name: "dup"}},
	}

	_, err := s.LoadSeed(context.Background(), seed)
	require.ErrorIs(t, err, ErrDuplicate)

	all, err := s.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
