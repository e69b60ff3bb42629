package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/pager"
)

// parseArgs reads first, after, last and before from the query string.
func parseArgs(r *http.Request) (pager.Args, error) {
	q := r.URL.Query()
	var args pager.Args
	for _, f := range []struct {
		name string
		dst  **int
	}{{"first", &args.First}, {"last", &args.Last}} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pager.Args{}, fmt.Errorf("%s: %q is not an integer", f.name, raw)
		}
		*f.dst = pager.Int(n)
	}
	if q.Has("after") {
		args.After = pager.String(q.Get("after"))
	}
	if q.Has("before") {
		args.Before = pager.String(q.Get("before"))
	}
	return args, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.svc.NewRequest()
	defer req.Close()

	if ids := r.URL.Query().Get("ids"); ids != "" {
		accounts, err := req.Accounts(ctx, strings.Split(ids, ",")).Get(ctx)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, accounts)
		return
	}

	args, err := parseArgs(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := req.AccountConnection(ctx, args)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conn)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.svc.NewRequest()
	defer req.Close()

	id := mux.Vars(r)["id"]
	account, err := req.Account(ctx, id).Get(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	if account == nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// transactionNode is a transaction with its counterparty resolved.
type transactionNode struct {
	model.Transaction
	Counterparty *model.Account `json:"counterparty,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.svc.NewRequest()
	defer req.Close()

	args, err := parseArgs(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]
	conn, err := req.TransactionConnection(ctx, id, args)
	if err != nil {
		respondErr(w, err)
		return
	}

	// Collect every counterparty before resolving any, so they share a batch.
	thunks := make([]*loader.Thunk[*model.Account], len(conn.Edges))
	for i, e := range conn.Edges {
		thunks[i] = req.Counterparty(ctx, e.Node)
	}
	req.Flush()

	out := pager.Connection[transactionNode]{
		Edges:      make([]pager.Edge[transactionNode], len(conn.Edges)),
		PageInfo:   conn.PageInfo,
		TotalCount: conn.TotalCount,
	}
	for i, e := range conn.Edges {
		cp, err := thunks[i].Get(ctx)
		if err != nil {
			respondErr(w, err)
			return
		}
		out.Edges[i] = pager.Edge[transactionNode]{
			Cursor: e.Cursor,
			Node:   transactionNode{Transaction: e.Node, Counterparty: cp},
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := s.svc.NewRequest()
	defer req.Close()

	tx, err := req.Transaction(ctx, mux.Vars(r)["id"]).Get(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	if tx == nil {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	cp, err := req.Counterparty(ctx, *tx).Get(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionNode{Transaction: *tx, Counterparty: cp})
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var a model.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.OpenAccount(r.Context(), a)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.Rename(r.Context(), mux.Vars(r)["id"], body.Name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status model.AccountStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.SetStatus(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// movement is the body of deposit and withdraw requests.
type movement struct {
	Amount int64  `json:"amount"`
	Memo   string `json:"memo"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var body movement
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.Deposit(r.Context(), mux.Vars(r)["id"], body.Amount, body.Memo)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var body movement
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.Withdraw(r.Context(), mux.Vars(r)["id"], body.Amount, body.Memo)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
		Memo   string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := s.svc.NewRequest()
	defer req.Close()
	res, err := req.Transfer(r.Context(), body.From, body.To, body.Amount, body.Memo)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
