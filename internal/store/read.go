package store

import (
	"context"
	"fmt"

	"github.com/roach88/acctql/internal/model"
)

// FetchAccounts returns one entry per id, in the order of ids, with nil
// for ids that do not exist. Duplicate ids are answered at every position
// they occur. This is the batch-fetch contract used by the account loader.
func (s *Store) FetchAccounts(ctx context.Context, ids []string) ([]*model.Account, error) {
	out := make([]*model.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := uniqueArgs(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id IN (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*model.Account, len(args))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// FetchTransactions returns one entry per id, in the order of ids, with
// nil for ids that do not exist.
func (s *Store) FetchTransactions(ctx context.Context, ids []string) ([]*model.Transaction, error) {
	out := make([]*model.Transaction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := uniqueArgs(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id IN (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*model.Transaction, len(args))
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// TransactionsByAccount returns, for each account id, that account's
// transactions ordered by seq ASC, id ASC. Unknown accounts get an empty
// (non-nil) slice.
func (s *Store) TransactionsByAccount(ctx context.Context, accountIDs []string) ([][]model.Transaction, error) {
	out := make([][]model.Transaction, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}

	args := uniqueArgs(accountIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE account_id IN (`+placeholders(len(args))+`)
		ORDER BY seq ASC, id COLLATE BINARY ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions by account: %w", err)
	}
	defer rows.Close()

	byAccount := make(map[string][]model.Transaction, len(args))
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		byAccount[t.AccountID] = append(byAccount[t.AccountID], *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i, id := range accountIDs {
		txs := byAccount[id]
		if txs == nil {
			txs = []model.Transaction{}
		}
		out[i] = txs
	}
	return out, nil
}

// ListAccounts returns every account ordered by id.
// Returns an empty slice (not nil) when there are no accounts.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query all accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// ReadAccount retrieves a single account by ID.
// Returns ErrNotFound if absent.
func (s *Store) ReadAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", id, notFound(err))
	}
	return a, nil
}

// ReadTransaction retrieves a single transaction by ID.
// Returns ErrNotFound if absent.
func (s *Store) ReadTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("read transaction %s: %w", id, notFound(err))
	}
	return t, nil
}
