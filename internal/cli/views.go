package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/mutation"
	"github.com/roach88/acctql/internal/pager"
	"github.com/roach88/acctql/internal/store"
)

// Views wrap command results so the text formatter can print them with
// fmt.Println. Their JSON form is the wrapped type's.

// lookupResult is one entry of a get command.
type lookupResult struct {
	ID      string         `json:"id"`
	Found   bool           `json:"found"`
	Account *model.Account `json:"account,omitempty"`
}

type lookupView []lookupResult

func (v lookupView) String() string {
	var b strings.Builder
	for i, r := range v {
		if i > 0 {
			b.WriteByte('\n')
		}
		if !r.Found {
			fmt.Fprintf(&b, "%s <not found>", r.ID)
			continue
		}
		b.WriteString(r.Account.String())
	}
	return b.String()
}

type accountPageView pager.Connection[model.Account]

func (v accountPageView) String() string {
	var b strings.Builder
	for _, e := range v.Edges {
		fmt.Fprintf(&b, "%s  %s\n", e.Cursor, e.Node.String())
	}
	writePageFooter(&b, len(v.Edges), v.TotalCount, v.PageInfo)
	return b.String()
}

// historyNode is a transaction with its counterparty resolved.
type historyNode struct {
	model.Transaction
	Counterparty *model.Account `json:"counterparty,omitempty"`
}

type historyView pager.Connection[historyNode]

func (v historyView) String() string {
	var b strings.Builder
	for _, e := range v.Edges {
		n := e.Node
		fmt.Fprintf(&b, "%s  %s", e.Cursor, n.Transaction.String())
		if n.Counterparty != nil {
			fmt.Fprintf(&b, " (%s)", n.Counterparty.Name)
		}
		b.WriteByte('\n')
	}
	writePageFooter(&b, len(v.Edges), v.TotalCount, v.PageInfo)
	return b.String()
}

func writePageFooter(b *strings.Builder, shown, total int, info pager.PageInfo) {
	fmt.Fprintf(b, "-- %d of %d", shown, total)
	if info.HasPreviousPage {
		b.WriteString(", has previous")
	}
	if info.HasNextPage {
		fmt.Fprintf(b, ", has next (--after %s)", deref(info.EndCursor))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type accountResultView mutation.AccountResult

func (v accountResultView) String() string {
	return fmt.Sprintf("%s\n-- %d event(s) published", v.Account.String(), len(v.Events))
}

type depositView mutation.DepositResult

func (v depositView) String() string {
	return fmt.Sprintf("%s\n%s\n-- %d event(s) published",
		v.Transaction.String(), v.Account.String(), len(v.Events))
}

type transferView mutation.TransferResult

func (v transferView) String() string {
	return fmt.Sprintf("%s\n%s\n%s\n%s\n-- %d event(s) published",
		v.Debit.String(), v.Credit.String(), v.From.String(), v.To.String(), len(v.Events))
}

type seedView store.SeedResult

func (v seedView) String() string {
	return fmt.Sprintf("Seeded %d account(s), %d transaction(s)", v.Accounts, v.Transactions)
}
