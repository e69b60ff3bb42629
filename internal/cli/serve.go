package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/acctql/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	Seed string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Serve accounts, transactions and mutations over HTTP, and stream change
events over websockets at /subscribe/{topic}.

Example:
  acctql serve --db ./acctql.db --addr :8080
  acctql serve --config ./acctql.cue --seed ./testdata/seed.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config http.addr)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML seed file to load before serving")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if opts.Seed != "" {
		res, err := env.store.LoadSeedFile(ctx, opts.Seed)
		if err != nil {
			_ = formatter.Error(ErrCodeSeedFile, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load seed", err)
		}
		slog.Info("seed loaded", "file", opts.Seed, "accounts", res.Accounts, "transactions", res.Transactions)
	}

	addr := env.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	srv := httpapi.New(env.svc)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", env.cfg.DB, addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}
