package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/acctql/internal/bus"
	"github.com/roach88/acctql/internal/config"
	"github.com/roach88/acctql/internal/service"
	"github.com/roach88/acctql/internal/store"
)

// setupLogging installs the default slog logger. Debug with --verbose,
// Info otherwise.
func setupLogging(verbose bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// formatter builds the output formatter for cmd.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads --config, or the defaults, and applies --db.
func (opts *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return config.Config{}, err
		}
	}
	if opts.Database != "" {
		cfg.DB = opts.Database
	}
	return cfg, nil
}

// environment is an opened store with a bus and service on top.
type environment struct {
	cfg   config.Config
	store *store.Store
	bus   *bus.Bus
	svc   *service.Service
}

// openEnvironment loads config and opens the database it names.
func (opts *RootOptions) openEnvironment() (*environment, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, &dbError{path: cfg.DB, err: err}
	}

	b := bus.New(bus.WithBufferSize(cfg.Bus.Buffer))
	svc := service.New(st, b, service.WithLoaderConfig(cfg.Loader))
	return &environment{cfg: cfg, store: st, bus: b, svc: svc}, nil
}

func (e *environment) Close() {
	e.bus.Close()
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// dbError marks a failure to open the database.
type dbError struct {
	path string
	err  error
}

func (e *dbError) Error() string {
	return "failed to open database " + e.path + ": " + e.err.Error()
}

func (e *dbError) Unwrap() error {
	return e.err
}
