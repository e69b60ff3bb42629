package model

import "fmt"

// Key identifies a record within its owning collection.
// Keys are stable for the lifetime of the record they reference.
type Key = string

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusFrozen AccountStatus = "frozen"
	StatusClosed AccountStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFrozen, StatusClosed:
		return true
	}
	return false
}

// Account is the primary record exposed to clients.
type Account struct {
	ID      Key           `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Owner   string        `json:"owner" yaml:"owner"`
	Balance int64         `json:"balance" yaml:"balance"`
	Status  AccountStatus `json:"status" yaml:"status"`

	// Seq is the store clock value of the last write to this account.
	Seq int64 `json:"seq" yaml:"-"`
}

// String renders the account for text output.
func (a *Account) String() string {
	if a == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%s %q owner=%s balance=%s status=%s",
		a.ID, a.Name, a.Owner, FormatAmount(a.Balance), a.Status)
}

// Transaction is one side of a balance movement on an account.
// A transfer produces two transactions: a debit on the source and a
// credit on the destination.
type Transaction struct {
	ID             Key    `json:"id" yaml:"id"`
	AccountID      Key    `json:"account_id" yaml:"account_id"`
	CounterpartyID Key    `json:"counterparty_id,omitempty" yaml:"counterparty_id,omitempty"`
	Amount         int64  `json:"amount" yaml:"amount"`
	Memo           string `json:"memo,omitempty" yaml:"memo,omitempty"`
	Seq            int64  `json:"seq" yaml:"-"`
}

// String renders the transaction for text output.
func (t *Transaction) String() string {
	if t == nil {
		return "<absent>"
	}
	cp := t.CounterpartyID
	if cp == "" {
		cp = "-"
	}
	return fmt.Sprintf("%s account=%s counterparty=%s amount=%s memo=%q",
		t.ID, t.AccountID, cp, FormatAmount(t.Amount), t.Memo)
}

// FormatAmount renders minor units as a signed decimal with two places.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
