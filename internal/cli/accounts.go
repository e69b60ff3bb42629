package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/pager"
)

// PageOptions holds the pagination flags shared by list and history.
type PageOptions struct {
	First  int
	Last   int
	After  string
	Before string
}

func (p *PageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.First, "first", -1, "return at most N items from the start of the window")
	cmd.Flags().IntVar(&p.Last, "last", -1, "return at most N items from the end of the window")
	cmd.Flags().StringVar(&p.After, "after", "", "start after this cursor")
	cmd.Flags().StringVar(&p.Before, "before", "", "stop before this cursor")
}

// args converts the flags that were set into pager arguments.
func (p *PageOptions) args(cmd *cobra.Command) pager.Args {
	var a pager.Args
	if cmd.Flags().Changed("first") {
		a.First = pager.Int(p.First)
	}
	if cmd.Flags().Changed("last") {
		a.Last = pager.Int(p.Last)
	}
	if cmd.Flags().Changed("after") {
		a.After = pager.String(p.After)
	}
	if cmd.Flags().Changed("before") {
		a.Before = pager.String(p.Before)
	}
	return a
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <account-id>...",
		Short: "Look up accounts by id",
		Long: `Look up one or more accounts by id in a single batched read.

Accounts that do not exist are reported as not found; they do not make
the command fail.

Example:
  acctql get --db ./acctql.db acc-001 acc-002`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runGet(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	ctx := cmd.Context()
	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	accounts, err := req.Accounts(ctx, ids).Get(ctx)
	if err != nil {
		return formatter.Report(err)
	}

	view := make(lookupView, len(ids))
	for i, id := range ids {
		view[i] = lookupResult{ID: id, Found: accounts[i] != nil, Account: accounts[i]}
	}
	stats, _ := req.Stats()
	formatter.VerboseLog("%d key(s) fetched in %d batch(es)", stats.Keys, stats.Batches)
	return formatter.Success(view)
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	page := &PageOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Page through accounts ordered by id",
		Long: `Page through all accounts ordered by id.

Filters apply in the order --after, --before, --first, --last.

Example:
  acctql list --first 10
  acctql list --first 10 --after Y3Vyc29yOmFjYy0wMTA=`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, page.args(cmd), cmd)
		},
	}
	page.bind(cmd)
	return cmd
}

func runList(opts *RootOptions, args pager.Args, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	conn, err := req.AccountConnection(cmd.Context(), args)
	if err != nil {
		return formatter.Report(err)
	}
	return formatter.Success(accountPageView(conn))
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	page := &PageOptions{}
	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "Page through the transactions of an account",
		Long: `Page through the transactions of an account, oldest first, with the
counterparty of each transfer resolved in one batched read.

Example:
  acctql history acc-001 --last 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], page.args(cmd), cmd)
		},
	}
	page.bind(cmd)
	return cmd
}

func runHistory(opts *RootOptions, accountID string, args pager.Args, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	ctx := cmd.Context()
	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	account, err := req.Account(ctx, accountID).Get(ctx)
	if err != nil {
		return formatter.Report(err)
	}
	if account == nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("account %s not found", accountID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("account %s not found", accountID))
	}

	conn, err := req.TransactionConnection(ctx, accountID, args)
	if err != nil {
		return formatter.Report(err)
	}

	thunks := make([]*loader.Thunk[*model.Account], len(conn.Edges))
	for i, e := range conn.Edges {
		thunks[i] = req.Counterparty(ctx, e.Node)
	}
	req.Flush()

	view := historyView{
		Edges:      make([]pager.Edge[historyNode], len(conn.Edges)),
		PageInfo:   conn.PageInfo,
		TotalCount: conn.TotalCount,
	}
	for i, e := range conn.Edges {
		cp, err := thunks[i].Get(ctx)
		if err != nil {
			return formatter.Report(err)
		}
		view.Edges[i] = pager.Edge[historyNode]{
			Cursor: e.Cursor,
			Node:   historyNode{Transaction: e.Node, Counterparty: cp},
		}
	}
	return formatter.Success(view)
}

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	*RootOptions
	Name    string
	Owner   string
	Balance int64
	Status  string
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "open <account-id>",
		Short: "Open a new account",
		Long: `Open a new account and publish an account_opened event.

Example:
  acctql open acc-003 --name Payroll --owner alice --balance 50000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "account owner")
	cmd.Flags().Int64Var(&opts.Balance, "balance", 0, "opening balance in minor units")
	cmd.Flags().StringVar(&opts.Status, "status", string(model.StatusActive), "initial status (active|frozen)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runOpen(opts *OpenOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	res, err := req.OpenAccount(cmd.Context(), model.Account{
		ID:      id,
		Name:    opts.Name,
		Owner:   opts.Owner,
		Balance: opts.Balance,
		Status:  model.AccountStatus(opts.Status),
	})
	if err != nil {
		return formatter.Report(err)
	}
	return formatter.Success(accountResultView(*res))
}
