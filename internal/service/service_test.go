package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acctql/internal/bus"
	"github.com/roach88/acctql/internal/config"
	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/pager"
	"github.com/roach88/acctql/internal/store"
	"github.com/roach88/acctql/internal/testutil"
)

// newTestService opens a temp store holding accounts a..e with 100.00
// each. Loaders have no wait window, so a Get dispatches its batch.
func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := st.InsertAccount(context.Background(), model.Account{
			ID: id, Name: "Account " + id, Owner: "owner-" + id, Balance: 10000,
		})
		require.NoError(t, err)
	}

	b := bus.New()
	t.Cleanup(b.Close)
	svc := New(st, b, WithLoaderConfig(config.LoaderConfig{Window: 0, MaxBatch: 100}))
	return svc, st
}

func TestRequest_AccountsBatched(t *testing.T) {
	svc, _ := newTestService(t)
	req := svc.NewRequest()
	ctx := context.Background()

	a := req.Account(ctx, "a")
	many := req.Accounts(ctx, []string{"c", "missing", "a"})

	got, err := many.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Nil(t, got[1], "absent accounts are nil, not errors")
	assert.Equal(t, "a", got[2].ID)

	acc, err := a.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Account a", acc.Name)

	stats, _ := req.Stats()
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 4, stats.Keys)

	_, err = req.Account(ctx, "c").Get(ctx)
	require.NoError(t, err)
	stats, _ = req.Stats()
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 1, stats.CacheHits)
}

func TestRequest_CounterpartyThroughLoader(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	setup := svc.NewRequest()
	_, err := setup.Transfer(ctx, "a", "b", 100, "")
	require.NoError(t, err)
	_, err = setup.Transfer(ctx, "a", "c", 100, "")
	require.NoError(t, err)
	_, err = setup.Deposit(ctx, "a", 50, "")
	require.NoError(t, err)

	req := svc.NewRequest()
	txs, err := req.Transactions(ctx, "a").Get(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	thunks := make([]*loader.Thunk[*model.Account], len(txs))
	for i, tx := range txs {
		thunks[i] = req.Counterparty(ctx, tx)
	}
	req.Flush()

	var names []string
	for _, th := range thunks {
		cp, err := th.Get(ctx)
		require.NoError(t, err)
		if cp == nil {
			names = append(names, "-")
			continue
		}
		names = append(names, cp.ID)
	}
	assert.Equal(t, []string{"b", "c", "-"}, names)

	accStats, txStats := req.Stats()
	assert.Equal(t, 1, accStats.Batches, "counterparties share one batch")
	assert.Equal(t, 1, txStats.Batches)
}

func TestRequest_AccountConnection(t *testing.T) {
	svc, _ := newTestService(t)
	req := svc.NewRequest()
	ctx := context.Background()

	page, err := req.AccountConnection(ctx, pager.Args{First: pager.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	require.Len(t, page.Edges, 2)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.False(t, page.PageInfo.HasPreviousPage)

	next, err := req.AccountConnection(ctx, pager.Args{First: pager.Int(2), After: page.PageInfo.EndCursor})
	require.NoError(t, err)
	ids := []string{}
	for _, n := range next.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"c", "d"}, ids)
	assert.True(t, next.PageInfo.HasPreviousPage)

	// Listed accounts are primed, so no batch is needed.
	_, err = req.Account(ctx, "d").Get(ctx)
	require.NoError(t, err)
	stats, _ := req.Stats()
	assert.Equal(t, 0, stats.Batches)

	_, err = req.AccountConnection(ctx, pager.Args{Last: pager.Int(-1)})
	var argsErr *pager.ArgsError
	assert.ErrorAs(t, err, &argsErr)
}

func TestRequest_TransactionConnection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := svc.NewRequest()

	for i := 0; i < 4; i++ {
		_, err := req.Deposit(ctx, "e", int64(i+1), "")
		require.NoError(t, err)
	}

	page, err := req.TransactionConnection(ctx, "e", pager.Args{Last: pager.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	require.Len(t, page.Edges, 2)
	assert.Equal(t, int64(3), page.Edges[0].Node.Amount)
	assert.Equal(t, int64(4), page.Edges[1].Node.Amount)
	assert.True(t, page.PageInfo.HasPreviousPage)

	empty, err := req.TransactionConnection(ctx, "nobody", pager.Args{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalCount)
	assert.NotNil(t, empty.Edges)
}

func TestRequest_MutationRefreshesCache(t *testing.T) {
	svc, _ := newTestService(t)
	req := svc.NewRequest()
	ctx := context.Background()

	before, err := req.Account(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), before.Balance)
	_, err = req.Transactions(ctx, "a").Get(ctx)
	require.NoError(t, err)

	_, err = req.Transfer(ctx, "a", "b", 1000, "")
	require.NoError(t, err)

	after, err := req.Account(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), after.Balance)

	txs, err := req.Transactions(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	_, err = req.Rename(ctx, "b", "Bravo")
	require.NoError(t, err)
	b, err := req.Account(ctx, "b").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bravo", b.Name)
	assert.Equal(t, int64(11000), b.Balance)
}

func TestRequest_NoCrossRequestCache(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	first := svc.NewRequest()
	a, err := first.Account(ctx, "a").Get(ctx)
	require.NoError(t, err)

	changed := *a
	changed.Name = "changed behind the service"
	_, err = st.UpdateAccount(ctx, changed)
	require.NoError(t, err)

	stale, err := first.Account(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Account a", stale.Name, "a request keeps what it loaded")

	second := svc.NewRequest()
	fresh, err := second.Account(ctx, "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "changed behind the service", fresh.Name)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestService_SubscribeSeesMutation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := svc.Subscribe(ctx, model.AccountTopic("a"))
	require.NoError(t, err)

	req := svc.NewRequest()
	_, err = req.SetStatus(ctx, "a", model.StatusFrozen)
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "frozen", ev.Payload["status"])

		// A fresh request observes the state the event describes.
		a, err := svc.NewRequest().Account(ctx, "a").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFrozen, a.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not cancelled with its context")
	}
	assert.Eventually(t, func() bool {
		return svc.Bus().SubscriberCount(model.AccountTopic("a")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequest_OpenAccountPrimes(t *testing.T) {
	svc, _ := newTestService(t)
	req := svc.NewRequest()
	ctx := context.Background()

	_, err := req.OpenAccount(ctx, model.Account{ID: "z", Name: "Zulu"})
	require.NoError(t, err)

	z, err := req.Account(ctx, "z").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Zulu", z.Name)

	stats, _ := req.Stats()
	assert.Equal(t, 0, stats.Batches)

	_, err = req.Withdraw(ctx, "z", 1, "")
	require.Error(t, err)
}

func TestRequest_MaxBatchSplitsLargeLookups(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	accounts := testutil.Accounts(25)
	for _, a := range accounts {
		_, err := st.InsertAccount(context.Background(), a)
		require.NoError(t, err)
	}

	b := bus.New()
	t.Cleanup(b.Close)
	svc := New(st, b, WithLoaderConfig(config.LoaderConfig{Window: 0, MaxBatch: 10}))
	req := svc.NewRequest()
	ctx := context.Background()

	got, err := req.Accounts(ctx, testutil.AccountIDs(accounts)).Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 25)
	for i, a := range got {
		assert.Equal(t, accounts[i].ID, a.ID)
		assert.Equal(t, accounts[i].Balance, a.Balance)
	}

	stats, _ := req.Stats()
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 25, stats.Keys)
}

func TestRequest_TransactionByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	setup := svc.NewRequest()
	tr, err := setup.Transfer(ctx, "a", "b", 300, "lunch")
	require.NoError(t, err)
	dep, err := setup.Deposit(ctx, "c", 50, "")
	require.NoError(t, err)

	got, err := setup.Transaction(ctx, tr.Debit.ID).Get(ctx)
	require.NoError(t, err)
	assert.Same(t, tr.Debit, got, "mutations prime the ledger loader")

	req := svc.NewRequest()
	debit := req.Transaction(ctx, tr.Debit.ID)
	credit := req.Transaction(ctx, tr.Credit.ID)
	missing := req.Transaction(ctx, "missing")
	deposit := req.Transaction(ctx, dep.Transaction.ID)
	req.Flush()

	d, err := debit.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-300), d.Amount)
	assert.Equal(t, "b", d.CounterpartyID)

	c, err := credit.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", c.AccountID)

	m, err := missing.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, m, "absent transactions are nil, not errors")

	p, err := deposit.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Amount)

	stats := req.ledger.Stats()
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 4, stats.Keys)
}
