package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/acctql/internal/model"
)

// TransferOptions holds flags for the transfer command.
type TransferOptions struct {
	*RootOptions
	From   string
	To     string
	Amount int64
	Memo   string
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move funds between two accounts",
		Long: `Move funds between two active accounts.

The transfer is validated, applied to the database and announced on the
account:<id>, accounts and transactions topics, in that order.

Example:
  acctql transfer --from acc-001 --to acc-002 --amount 2500 --memo rent`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.From, "from", "", "source account (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "destination account (required)")
	cmd.Flags().Int64Var(&opts.Amount, "amount", 0, "amount in minor units (required)")
	cmd.Flags().StringVar(&opts.Memo, "memo", "", "free-form note")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runTransfer(opts *TransferOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	res, err := req.Transfer(cmd.Context(), opts.From, opts.To, opts.Amount, opts.Memo)
	if err != nil {
		return formatter.Report(err)
	}
	return formatter.Success(transferView(*res))
}

// MovementOptions holds flags for the deposit and withdraw commands.
type MovementOptions struct {
	*RootOptions
	Amount int64
	Memo   string
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	return newMovementCommand(rootOpts, "deposit", "Add funds to an account", false)
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return newMovementCommand(rootOpts, "withdraw", "Remove funds from an account", true)
}

func newMovementCommand(rootOpts *RootOptions, name, short string, withdraw bool) *cobra.Command {
	opts := &MovementOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   name + " <account-id>",
		Short: short,
		Long: short + `.

Example:
  acctql ` + name + ` acc-001 --amount 1000 --memo "cash"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMovement(opts, args[0], withdraw, cmd)
		},
	}
	cmd.Flags().Int64Var(&opts.Amount, "amount", 0, "amount in minor units (required)")
	cmd.Flags().StringVar(&opts.Memo, "memo", "", "free-form note")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runMovement(opts *MovementOptions, id string, withdraw bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	req := env.svc.NewRequest()
	defer req.Close()
	formatter.RequestID = req.ID()

	move := req.Deposit
	if withdraw {
		move = req.Withdraw
	}
	res, err := move(cmd.Context(), id, opts.Amount, opts.Memo)
	if err != nil {
		return formatter.Report(err)
	}
	return formatter.Success(depositView(*res))
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <account-id> <name>",
		Short: "Rename an account",
		Long: `Change the display name of an account.

Example:
  acctql rename acc-001 "Operating (USD)"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			env, err := rootOpts.openEnvironment()
			if err != nil {
				return formatter.Report(err)
			}
			defer env.Close()

			req := env.svc.NewRequest()
			defer req.Close()
			formatter.RequestID = req.ID()

			res, err := req.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return formatter.Report(err)
			}
			return formatter.Success(accountResultView(*res))
		},
	}
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <account-id> <active|frozen|closed>",
		Short: "Change the status of an account",
		Long: `Change the lifecycle status of an account.

Frozen accounts cannot move funds. Closed is final and requires a zero
balance.

Example:
  acctql status acc-002 frozen`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			env, err := rootOpts.openEnvironment()
			if err != nil {
				return formatter.Report(err)
			}
			defer env.Close()

			req := env.svc.NewRequest()
			defer req.Close()
			formatter.RequestID = req.ID()

			res, err := req.SetStatus(cmd.Context(), args[0], model.AccountStatus(args[1]))
			if err != nil {
				return formatter.Report(err)
			}
			return formatter.Success(accountResultView(*res))
		},
	}
	return cmd
}
