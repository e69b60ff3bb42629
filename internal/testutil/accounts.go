package testutil

import (
	"fmt"

	"github.com/roach88/acctql/internal/model"
)

// Accounts returns n active accounts "acc-001".."acc-NNN" in id order.
// Account i holds i*1000 minor units and is owned by "owner-<i mod 3>".
func Accounts(n int) []model.Account {
	out := make([]model.Account, n)
	for i := range out {
		out[i] = model.Account{
			ID:      AccountID(i + 1),
			Name:    fmt.Sprintf("Account %d", i+1),
			Owner:   fmt.Sprintf("owner-%d", (i+1)%3),
			Balance: int64(i+1) * 1000,
			Status:  model.StatusActive,
		}
	}
	return out
}

// AccountID formats the i-th fixture account id.
func AccountID(i int) string {
	return fmt.Sprintf("acc-%03d", i)
}

// AccountIDs returns the ids of accounts in order.
func AccountIDs(accounts []model.Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}
