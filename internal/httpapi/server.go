// Package httpapi exposes the query service over HTTP. Reads and writes
// are plain JSON endpoints; change events stream over a websocket.
//
//	GET  /accounts?first=&after=&last=&before=   page of accounts
//	GET  /accounts?ids=a,b,c                      batch lookup
//	POST /accounts                                open an account
//	GET  /accounts/{id}
//	GET  /accounts/{id}/transactions              page, with counterparties
//	POST /accounts/{id}/rename                    {"name": ...}
//	POST /accounts/{id}/status                    {"status": ...}
//	POST /accounts/{id}/deposit                   {"amount": ..., "memo": ...}
//	POST /accounts/{id}/withdraw                  {"amount": ..., "memo": ...}
//	POST /transfers                               {"from", "to", "amount", "memo"}
//	GET  /subscribe/{topic}                       websocket event stream
//
// Every HTTP request gets its own service.Request, so loader caches
// never outlive the request that filled them.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/roach88/acctql/internal/service"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server routes HTTP requests to a service.
type Server struct {
	svc      *service.Service
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a server for svc.
func New(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/accounts", s.handleListAccounts).Methods("GET")
	r.HandleFunc("/accounts", s.handleOpenAccount).Methods("POST")
	r.HandleFunc("/accounts/{id}", s.handleGetAccount).Methods("GET")
	r.HandleFunc("/accounts/{id}/transactions", s.handleListTransactions).Methods("GET")
	r.HandleFunc("/accounts/{id}/rename", s.handleRename).Methods("POST")
	r.HandleFunc("/accounts/{id}/status", s.handleSetStatus).Methods("POST")
	r.HandleFunc("/accounts/{id}/deposit", s.handleDeposit).Methods("POST")
	r.HandleFunc("/accounts/{id}/withdraw", s.handleWithdraw).Methods("POST")
	r.HandleFunc("/transfers", s.handleTransfer).Methods("POST")
	r.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods("GET")

	r.HandleFunc("/subscribe/{topic}", s.handleSubscribe).Methods("GET")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Bus().Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"published": st.Published,
		"dropped":   st.Dropped,
	})
}
