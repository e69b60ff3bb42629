package store

import (
	"database/sql"
	"strings"

	"github.com/roach88/acctql/internal/model"
)

const accountColumns = `id, name, owner, balance, status, seq`

const transactionColumns = `id, account_id, counterparty_id, amount, memo, seq`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	var status string
	if err := row.Scan(&a.ID, &a.Name, &a.Owner, &a.Balance, &status, &a.Seq); err != nil {
		return nil, err
	}
	a.Status = model.AccountStatus(status)
	return &a, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	if err := row.Scan(&t.ID, &t.AccountID, &t.CounterpartyID, &t.Amount, &t.Memo, &t.Seq); err != nil {
		return nil, err
	}
	return &t, nil
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// uniqueArgs returns the distinct ids in first-seen order as query args.
func uniqueArgs(ids []string) []any {
	seen := make(map[string]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}
	return args
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}
