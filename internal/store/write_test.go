package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acctql/internal/model"
)

func TestInsertAccount_DefaultsAndSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.InsertAccount(ctx, model.Account{ID: "a", Name: "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, a.Status)
	assert.Equal(t, int64(1), a.Seq)

	b, err := s.InsertAccount(ctx, model.Account{ID: "b", Name: "Beta", Status: model.StatusFrozen})
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Seq)

	got, err := s.ReadAccount(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestInsertAccount_Duplicate(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a")

	_, err := s.InsertAccount(context.Background(), model.Account{ID: "a", Name: "again"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateAccount(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a")
	ctx := context.Background()

	cur, err := s.ReadAccount(ctx, "a")
	require.NoError(t, err)

	cur.Name = "Renamed"
	cur.Status = model.StatusFrozen
	updated, err := s.UpdateAccount(ctx, *cur)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, model.StatusFrozen, updated.Status)
	assert.Greater(t, updated.Seq, cur.Seq)

	_, err = s.UpdateAccount(ctx, model.Account{ID: "ghost", Name: "x", Status: model.StatusActive})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyTransfer(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a", "b")
	ctx := context.Background()

	res, err := s.ApplyTransfer(ctx, Transfer{From: "a", To: "b", Amount: 2500, Memo: "rent"})
	require.NoError(t, err)

	assert.Equal(t, int64(7500), res.From.Balance)
	assert.Equal(t, int64(12500), res.To.Balance)
	assert.Equal(t, int64(-2500), res.Debit.Amount)
	assert.Equal(t, "b", res.Debit.CounterpartyID)
	assert.Equal(t, int64(2500), res.Credit.Amount)
	assert.Equal(t, "rent", res.Credit.Memo)
	assert.Equal(t, transactionID(res.Debit.Seq), res.Debit.ID)
	assert.Equal(t, res.Debit.Seq, res.From.Seq)
	assert.Equal(t, res.Credit.Seq, res.To.Seq)
}

func TestApplyTransfer_UnknownAccountRollsBack(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a")
	ctx := context.Background()

	_, err := s.ApplyTransfer(ctx, Transfer{From: "a", To: "ghost", Amount: 100})
	require.ErrorIs(t, err, ErrNotFound)

	a, err := s.ReadAccount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), a.Balance, "debit must be rolled back")

	txs, err := s.TransactionsByAccount(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, txs[0])
}

func TestApplyDeposit(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a")
	ctx := context.Background()

	res, err := s.ApplyDeposit(ctx, "a", -300, "fee")
	require.NoError(t, err)
	assert.Equal(t, int64(9700), res.Account.Balance)
	assert.Equal(t, "", res.Transaction.CounterpartyID)

	_, err = s.ApplyDeposit(ctx, "ghost", 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentTransfers_Serialised(t *testing.T) {
	s := createTestStore(t)
	insertTestAccounts(t, s, "a", "b")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			_, err := s.ApplyTransfer(ctx, Transfer{From: from, To: to, Amount: 10})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.FetchAccounts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got[0].Balance)
	assert.Equal(t, int64(10000), got[1].Balance)
	assert.Equal(t, int64(20000), got[0].Balance+got[1].Balance)

	seq, err := s.Seq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2+20*2), seq)
}
