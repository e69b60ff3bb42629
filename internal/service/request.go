package service

import (
	"context"
	"fmt"

	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/mutation"
	"github.com/roach88/acctql/internal/pager"
)

// Request is the read context of one client request.
//
// Account and transaction lookups issued through a Request are batched:
// callers collect thunks first and Get them afterwards, and every lookup
// made before the batch dispatches shares one store round trip.
type Request struct {
	id  string
	svc *Service

	accounts     *loader.Loader[string, *model.Account]
	transactions *loader.Loader[string, []model.Transaction]
	ledger       *loader.Loader[string, *model.Transaction]
}

// ID returns the request identifier used in logs.
func (r *Request) ID() string {
	return r.id
}

// Account loads one account. The result is nil if the account does not
// exist.
func (r *Request) Account(ctx context.Context, id string) *loader.Thunk[*model.Account] {
	return r.accounts.Load(ctx, id)
}

// Accounts loads several accounts. Results follow the order of ids, with
// nil for absent accounts.
func (r *Request) Accounts(ctx context.Context, ids []string) *loader.ManyThunk[*model.Account] {
	return r.accounts.LoadMany(ctx, ids)
}

// Transactions loads the transactions of one account, oldest first.
func (r *Request) Transactions(ctx context.Context, accountID string) *loader.Thunk[[]model.Transaction] {
	return r.transactions.Load(ctx, accountID)
}

// Transaction loads one transaction by id. The result is nil if it does
// not exist.
func (r *Request) Transaction(ctx context.Context, id string) *loader.Thunk[*model.Transaction] {
	return r.ledger.Load(ctx, id)
}

// Counterparty loads the other account of a transfer transaction. It
// resolves to nil for deposits and withdrawals.
func (r *Request) Counterparty(ctx context.Context, t model.Transaction) *loader.Thunk[*model.Account] {
	if t.CounterpartyID == "" {
		return loader.Resolved[*model.Account](nil, nil)
	}
	return r.accounts.Load(ctx, t.CounterpartyID)
}

// AccountConnection pages through all accounts ordered by id. Listed
// accounts are primed into the account loader.
func (r *Request) AccountConnection(ctx context.Context, args pager.Args) (pager.Connection[model.Account], error) {
	if err := args.Validate(); err != nil {
		return pager.Connection[model.Account]{}, err
	}
	all, err := r.svc.store.ListAccounts(ctx)
	if err != nil {
		return pager.Connection[model.Account]{}, fmt.Errorf("list accounts: %w", err)
	}
	conn := pager.Paginate(all, accountKey, args)
	for _, e := range conn.Edges {
		a := e.Node
		r.accounts.Prime(a.ID, &a)
	}
	return conn, nil
}

// TransactionConnection pages through the transactions of one account,
// oldest first.
func (r *Request) TransactionConnection(ctx context.Context, accountID string, args pager.Args) (pager.Connection[model.Transaction], error) {
	if err := args.Validate(); err != nil {
		return pager.Connection[model.Transaction]{}, err
	}
	txs, err := r.transactions.Load(ctx, accountID).Get(ctx)
	if err != nil {
		return pager.Connection[model.Transaction]{}, err
	}
	return pager.Paginate(txs, transactionKey, args), nil
}

// Flush dispatches any pending lookups and waits for them.
func (r *Request) Flush() {
	r.accounts.Flush()
	r.transactions.Flush()
	r.ledger.Flush()
}

// Stats reports loader activity for the account and transaction loaders.
func (r *Request) Stats() (accounts, transactions loader.Stats) {
	return r.accounts.Stats(), r.transactions.Stats()
}

// Close logs loader activity. The request must not be used afterwards.
func (r *Request) Close() {
	a, t := r.Stats()
	r.svc.logger.Debug("request done",
		"request", r.id,
		"account_batches", a.Batches,
		"account_cache_hits", a.CacheHits,
		"transaction_batches", t.Batches,
		"ledger_batches", r.ledger.Stats().Batches,
	)
}

// OpenAccount creates an account and primes it into this request.
func (r *Request) OpenAccount(ctx context.Context, a model.Account) (*mutation.AccountResult, error) {
	res, err := r.svc.coord.OpenAccount(ctx, a)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(res.Account.ID, res.Account)
	return res, nil
}

// Rename renames an account and refreshes it in this request.
func (r *Request) Rename(ctx context.Context, id, name string) (*mutation.AccountResult, error) {
	res, err := r.svc.coord.Rename(ctx, id, name)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(id, res.Account)
	return res, nil
}

// SetStatus changes an account status and refreshes it in this request.
func (r *Request) SetStatus(ctx context.Context, id string, status model.AccountStatus) (*mutation.AccountResult, error) {
	res, err := r.svc.coord.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(id, res.Account)
	return res, nil
}

// Deposit credits an account and refreshes it in this request.
func (r *Request) Deposit(ctx context.Context, id string, amount int64, memo string) (*mutation.DepositResult, error) {
	res, err := r.svc.coord.Deposit(ctx, id, amount, memo)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(id, res.Account)
	r.transactions.Clear(id)
	r.ledger.Prime(res.Transaction.ID, res.Transaction)
	return res, nil
}

// Withdraw debits an account and refreshes it in this request.
func (r *Request) Withdraw(ctx context.Context, id string, amount int64, memo string) (*mutation.DepositResult, error) {
	res, err := r.svc.coord.Withdraw(ctx, id, amount, memo)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(id, res.Account)
	r.transactions.Clear(id)
	r.ledger.Prime(res.Transaction.ID, res.Transaction)
	return res, nil
}

// Transfer moves funds and refreshes both accounts in this request.
func (r *Request) Transfer(ctx context.Context, from, to string, amount int64, memo string) (*mutation.TransferResult, error) {
	res, err := r.svc.coord.Transfer(ctx, from, to, amount, memo)
	if err != nil {
		return nil, err
	}
	r.accounts.Prime(from, res.From)
	r.accounts.Prime(to, res.To)
	r.transactions.Clear(from)
	r.transactions.Clear(to)
	r.ledger.Prime(res.Debit.ID, res.Debit)
	r.ledger.Prime(res.Credit.ID, res.Credit)
	return res, nil
}

func accountKey(a model.Account) model.Key         { return a.ID }
func transactionKey(t model.Transaction) model.Key { return t.ID }
