package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML dataset into the database",
		Long: `Load accounts and transactions from a YAML seed file.

The database is created if it doesn't exist. The whole file is loaded in
one transaction; if any record is rejected nothing is written.

Example:
  acctql seed --db ./acctql.db --file ./testdata/seed.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to YAML seed file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(opts.File); errors.Is(err, os.ErrNotExist) {
		_ = formatter.Error(ErrCodeSeedFile, "seed file not found: "+opts.File, nil)
		return NewExitError(ExitCommandError, "seed file not found: "+opts.File)
	}

	env, err := opts.openEnvironment()
	if err != nil {
		return formatter.Report(err)
	}
	defer env.Close()

	formatter.VerboseLog("Loading %s into %s", opts.File, env.cfg.DB)
	res, err := env.store.LoadSeedFile(cmd.Context(), opts.File)
	if err != nil {
		_ = formatter.Error(ErrCodeSeedFile, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load seed", err)
	}
	return formatter.Success(seedView(res))
}
