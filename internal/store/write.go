package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/acctql/internal/model"
)

// ErrDuplicate is returned when inserting a record whose ID already exists.
var ErrDuplicate = errors.New("record already exists")

// Transfer describes a balance movement between two accounts.
type Transfer struct {
	From   string
	To     string
	Amount int64
	Memo   string
}

// TransferResult holds the post-write state of a transfer.
type TransferResult struct {
	From   *model.Account
	To     *model.Account
	Debit  *model.Transaction
	Credit *model.Transaction
}

// DepositResult holds the post-write state of a deposit or withdrawal.
type DepositResult struct {
	Account     *model.Account
	Transaction *model.Transaction
}

// InsertAccount writes a new account stamped with the next seq.
// Returns ErrDuplicate if the ID is taken.
func (s *Store) InsertAccount(ctx context.Context, a model.Account) (*model.Account, error) {
	var out *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := insertAccount(ctx, tx, a)
		out = inserted
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert account %s: %w", a.ID, err)
	}
	return out, nil
}

// UpdateAccount overwrites name, owner, balance and status of an existing
// account and stamps it with the next seq. Returns ErrNotFound if absent.
func (s *Store) UpdateAccount(ctx context.Context, a model.Account) (*model.Account, error) {
	var out *model.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts SET name = ?, owner = ?, balance = ?, status = ?, seq = ?
			WHERE id = ?
		`, a.Name, a.Owner, a.Balance, string(a.Status), seq, a.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		out, err = readAccountTx(ctx, tx, a.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update account %s: %w", a.ID, err)
	}
	return out, nil
}

// ApplyTransfer debits From, credits To and records one transaction per
// side, all in a single SQL transaction. It performs no business
// validation; both accounts must exist.
func (s *Store) ApplyTransfer(ctx context.Context, t Transfer) (*TransferResult, error) {
	res := &TransferResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		debit, err := applyMovement(ctx, tx, t.From, t.To, -t.Amount, t.Memo)
		if err != nil {
			return err
		}
		credit, err := applyMovement(ctx, tx, t.To, t.From, t.Amount, t.Memo)
		if err != nil {
			return err
		}
		res.Debit, res.Credit = debit, credit

		if res.From, err = readAccountTx(ctx, tx, t.From); err != nil {
			return err
		}
		res.To, err = readAccountTx(ctx, tx, t.To)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("apply transfer %s -> %s: %w", t.From, t.To, err)
	}
	return res, nil
}

// ApplyDeposit adds amount (negative for a withdrawal) to an account and
// records the transaction.
func (s *Store) ApplyDeposit(ctx context.Context, accountID string, amount int64, memo string) (*DepositResult, error) {
	res := &DepositResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txn, err := applyMovement(ctx, tx, accountID, "", amount, memo)
		if err != nil {
			return err
		}
		res.Transaction = txn
		res.Account, err = readAccountTx(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("apply deposit %s: %w", accountID, err)
	}
	return res, nil
}

// withTx runs fn in a transaction, committing on nil and rolling back on
// error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// nextSeq advances and returns the store clock.
func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = value + 1 WHERE key = 'seq'`); err != nil {
		return 0, fmt.Errorf("advance seq: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'seq'`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read seq: %w", err)
	}
	return seq, nil
}

// transactionID derives a transaction ID from its seq so IDs sort in
// write order.
func transactionID(seq int64) string {
	return fmt.Sprintf("tx-%08d", seq)
}

func insertAccount(ctx context.Context, tx *sql.Tx, a model.Account) (*model.Account, error) {
	if a.Status == "" {
		a.Status = model.StatusActive
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name, owner, balance, status, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Owner, a.Balance, string(a.Status), seq)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	a.Seq = seq
	return &a, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t model.Transaction) (*model.Transaction, error) {
	if t.ID == "" {
		t.ID = transactionID(t.Seq)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, counterparty_id, amount, memo, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.AccountID, t.CounterpartyID, t.Amount, t.Memo, t.Seq)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, ErrDuplicate)
		}
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	return &t, nil
}

// applyMovement changes one account balance and records the transaction
// under the same seq.
func applyMovement(ctx context.Context, tx *sql.Tx, accountID, counterparty string, amount int64, memo string) (*model.Transaction, error) {
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ?, seq = ? WHERE id = ?
	`, amount, seq, accountID)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return insertTransaction(ctx, tx, model.Transaction{
		AccountID:      accountID,
		CounterpartyID: counterparty,
		Amount:         amount,
		Memo:           memo,
		Seq:            seq,
	})
}

func readAccountTx(ctx context.Context, tx *sql.Tx, id string) (*model.Account, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", id, notFound(err))
	}
	return a, nil
}

// isDuplicateKey reports a SQLite primary key or unique violation.
func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
