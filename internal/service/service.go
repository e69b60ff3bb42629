// Package service is the entry point used by transports. It hands out
// per-request read contexts backed by fresh batch loaders, proxies
// mutations through the coordinator and subscriptions to the change bus.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/acctql/internal/bus"
	"github.com/roach88/acctql/internal/config"
	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/mutation"
)

// Store is the record store the service reads and writes through.
// *store.Store implements it.
type Store interface {
	mutation.Store
	FetchAccounts(ctx context.Context, ids []string) ([]*model.Account, error)
	FetchTransactions(ctx context.Context, ids []string) ([]*model.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountIDs []string) ([][]model.Transaction, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLoaderConfig sets the batch window and size of request loaders.
func WithLoaderConfig(c config.LoaderConfig) Option {
	return func(s *Service) {
		s.loaderCfg = c
	}
}

// WithLogger sets the service logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// Service wires the store, the change bus and the mutation coordinator.
// It holds no per-request state; see NewRequest.
type Service struct {
	store     Store
	bus       *bus.Bus
	coord     *mutation.Coordinator
	loaderCfg config.LoaderConfig
	logger    *slog.Logger
}

// New creates a service over st and b.
func New(st Store, b *bus.Bus, opts ...Option) *Service {
	s := &Service{
		store:     st,
		bus:       b,
		loaderCfg: config.Default().Loader,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coord = mutation.New(st, b, mutation.WithLogger(s.logger))
	return s
}

// NewRequest returns a read context with its own loaders. Call it once
// per incoming request and drop the result when the request ends; loaded
// records are never shared between requests.
func (s *Service) NewRequest() *Request {
	id := uuid.Must(uuid.NewV7()).String()
	opts := func(name string) []loader.Option {
		return []loader.Option{
			loader.WithName(name),
			loader.WithWait(s.loaderCfg.Window),
			loader.WithMaxBatch(s.loaderCfg.MaxBatch),
			loader.WithLogger(s.logger.With("request", id)),
		}
	}
	return &Request{
		id:           id,
		svc:          s,
		accounts:     loader.New(s.store.FetchAccounts, opts("accounts")...),
		transactions: loader.New(s.store.TransactionsByAccount, opts("transactions")...),
		ledger:       loader.New(s.store.FetchTransactions, opts("ledger")...),
	}
}

// Subscribe streams events published on topic until ctx is done or the
// subscription is cancelled.
func (s *Service) Subscribe(ctx context.Context, topic string) (*bus.Subscription, error) {
	return s.bus.SubscribeContext(ctx, topic)
}

// Coordinator returns the mutation coordinator.
func (s *Service) Coordinator() *mutation.Coordinator {
	return s.coord
}

// Bus returns the change bus.
func (s *Service) Bus() *bus.Bus {
	return s.bus
}
