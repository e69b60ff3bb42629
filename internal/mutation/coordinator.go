package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/roach88/acctql/internal/model"
	"github.com/roach88/acctql/internal/store"
)

// Store is the subset of the record store the coordinator writes through.
// *store.Store implements it.
type Store interface {
	ReadAccount(ctx context.Context, id string) (*model.Account, error)
	InsertAccount(ctx context.Context, a model.Account) (*model.Account, error)
	UpdateAccount(ctx context.Context, a model.Account) (*model.Account, error)
	ApplyTransfer(ctx context.Context, t store.Transfer) (*store.TransferResult, error)
	ApplyDeposit(ctx context.Context, accountID string, amount int64, memo string) (*store.DepositResult, error)
}

// Publisher stamps and delivers change events. *bus.Bus implements it.
type Publisher interface {
	Publish(topic string, kind model.EventKind, payload map[string]any) (model.Event, error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// Coordinator validates, applies and announces account mutations.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialised; reads through the store are not blocked.
type Coordinator struct {
	mu     sync.Mutex
	store  Store
	pub    Publisher
	logger *slog.Logger
}

// New creates a coordinator writing to st and publishing to pub.
func New(st Store, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  st,
		pub:    pub,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccountResult is the outcome of a mutation touching one account record.
type AccountResult struct {
	Account *model.Account `json:"account"`
	Events  []model.Event  `json:"events"`
}

// DepositResult is the outcome of a deposit or withdrawal.
type DepositResult struct {
	Account     *model.Account     `json:"account"`
	Transaction *model.Transaction `json:"transaction"`
	Events      []model.Event      `json:"events"`
}

// TransferResult is the outcome of a transfer between two accounts.
type TransferResult struct {
	From   *model.Account     `json:"from"`
	To     *model.Account     `json:"to"`
	Debit  *model.Transaction `json:"debit"`
	Credit *model.Transaction `json:"credit"`
	Events []model.Event      `json:"events"`
}

// OpenAccount creates a new account. Status defaults to active.
func (c *Coordinator) OpenAccount(ctx context.Context, a model.Account) (*AccountResult, error) {
	a.Name = strings.TrimSpace(a.Name)
	switch {
	case a.ID == "":
		return nil, reject(ReasonEmptyID, "", "account id is required")
	case a.Name == "":
		return nil, reject(ReasonEmptyName, a.ID, "account name is required")
	case a.Status != "" && !a.Status.Valid():
		return nil, reject(ReasonInvalidStatus, a.ID, "invalid status %q", a.Status)
	case a.Balance < 0:
		return nil, reject(ReasonInsufficientFunds, a.ID, "opening balance %s is negative", model.FormatAmount(a.Balance))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.ReadAccount(ctx, a.ID); err == nil {
		return nil, reject(ReasonDuplicateAccount, a.ID, "account already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("open account: %w", err)
	}

	created, err := c.store.InsertAccount(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, reject(ReasonDuplicateAccount, a.ID, "account already exists")
		}
		return nil, fmt.Errorf("open account: %w", err)
	}

	res := &AccountResult{Account: created}
	res.Events = c.publishAccount(created, model.KindAccountOpened)
	c.logger.Debug("account opened", "account", created.ID, "seq", created.Seq)
	return res, nil
}

// Rename changes the display name of an open account.
func (c *Coordinator) Rename(ctx context.Context, id, name string) (*AccountResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, reject(ReasonEmptyName, id, "account name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == model.StatusClosed {
		return nil, reject(ReasonAccountClosed, id, "account is closed")
	}

	cur.Name = name
	updated, err := c.store.UpdateAccount(ctx, *cur)
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}

	res := &AccountResult{Account: updated}
	res.Events = c.publishAccount(updated, model.KindAccountUpdated)
	c.logger.Debug("account renamed", "account", id, "seq", updated.Seq)
	return res, nil
}

// SetStatus moves an account to a new lifecycle state. Closed is
// terminal, and only an account with a zero balance can be closed.
func (c *Coordinator) SetStatus(ctx context.Context, id string, status model.AccountStatus) (*AccountResult, error) {
	if !status.Valid() {
		return nil, reject(ReasonInvalidStatus, id, "invalid status %q", status)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == model.StatusClosed {
		return nil, reject(ReasonAccountClosed, id, "account is closed")
	}
	if status == model.StatusClosed && cur.Balance != 0 {
		return nil, reject(ReasonNonZeroBalance, id, "cannot close account holding %s", model.FormatAmount(cur.Balance))
	}

	cur.Status = status
	updated, err := c.store.UpdateAccount(ctx, *cur)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}

	res := &AccountResult{Account: updated}
	res.Events = c.publishAccount(updated, model.KindAccountUpdated)
	c.logger.Debug("account status changed", "account", id, "status", status, "seq", updated.Seq)
	return res, nil
}

// Deposit adds a positive amount to an active account.
func (c *Coordinator) Deposit(ctx context.Context, id string, amount int64, memo string) (*DepositResult, error) {
	if amount <= 0 {
		return nil, reject(ReasonNonPositiveAmount, id, "amount must be positive")
	}
	return c.move(ctx, id, amount, memo)
}

// Withdraw removes a positive amount from an active account that holds
// at least that much.
func (c *Coordinator) Withdraw(ctx context.Context, id string, amount int64, memo string) (*DepositResult, error) {
	if amount <= 0 {
		return nil, reject(ReasonNonPositiveAmount, id, "amount must be positive")
	}
	return c.move(ctx, id, -amount, memo)
}

// move applies a validated non-zero delta to one account.
func (c *Coordinator) move(ctx context.Context, id string, delta int64, memo string) (*DepositResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkActive(cur); err != nil {
		return nil, err
	}
	if delta < 0 && cur.Balance < -delta {
		return nil, reject(ReasonInsufficientFunds, id, "balance %s is less than %s",
			model.FormatAmount(cur.Balance), model.FormatAmount(-delta))
	}
	if err := checkCredit(cur, delta); err != nil {
		return nil, err
	}

	applied, err := c.store.ApplyDeposit(ctx, id, delta, memo)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	res := &DepositResult{Account: applied.Account, Transaction: applied.Transaction}
	res.Events = append(res.Events, c.publishAccount(applied.Account, model.KindAccountUpdated)...)
	res.Events = append(res.Events, c.publishTransactions(applied.Transaction)...)
	c.logger.Debug("balance moved", "account", id, "amount", delta, "seq", applied.Transaction.Seq)
	return res, nil
}

// Transfer moves a positive amount from one active account to another.
func (c *Coordinator) Transfer(ctx context.Context, from, to string, amount int64, memo string) (*TransferResult, error) {
	switch {
	case amount <= 0:
		return nil, reject(ReasonNonPositiveAmount, from, "amount must be positive")
	case from == to:
		return nil, reject(ReasonSameAccount, from, "cannot transfer to the same account")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.current(ctx, from)
	if err != nil {
		return nil, err
	}
	dst, err := c.current(ctx, to)
	if err != nil {
		return nil, err
	}
	if err := checkActive(src); err != nil {
		return nil, err
	}
	if err := checkActive(dst); err != nil {
		return nil, err
	}
	if src.Balance < amount {
		return nil, reject(ReasonInsufficientFunds, from, "balance %s is less than %s",
			model.FormatAmount(src.Balance), model.FormatAmount(amount))
	}
	if err := checkCredit(dst, amount); err != nil {
		return nil, err
	}

	applied, err := c.store.ApplyTransfer(ctx, store.Transfer{From: from, To: to, Amount: amount, Memo: memo})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	res := &TransferResult{
		From:   applied.From,
		To:     applied.To,
		Debit:  applied.Debit,
		Credit: applied.Credit,
	}
	res.Events = append(res.Events, c.publishAccount(applied.From, model.KindAccountUpdated)...)
	res.Events = append(res.Events, c.publishAccount(applied.To, model.KindAccountUpdated)...)
	res.Events = append(res.Events, c.publishTransactions(applied.Debit, applied.Credit)...)
	c.logger.Debug("transfer applied", "from", from, "to", to, "amount", amount)
	return res, nil
}

// current reads the account a mutation validates against.
func (c *Coordinator) current(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, reject(ReasonEmptyID, "", "account id is required")
	}
	a, err := c.store.ReadAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, reject(ReasonUnknownAccount, id, "account does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", id, err)
	}
	return a, nil
}

func checkActive(a *model.Account) error {
	switch a.Status {
	case model.StatusFrozen:
		return reject(ReasonAccountFrozen, a.ID, "account is frozen")
	case model.StatusClosed:
		return reject(ReasonAccountClosed, a.ID, "account is closed")
	}
	return nil
}

// checkCredit rejects a credit that would overflow the balance column.
func checkCredit(a *model.Account, amount int64) error {
	if amount > 0 && a.Balance > math.MaxInt64-amount {
		return reject(ReasonBalanceOverflow, a.ID, "crediting %s would overflow balance %s",
			model.FormatAmount(amount), model.FormatAmount(a.Balance))
	}
	return nil
}

// publishAccount announces an account change on its own topic and on the
// accounts topic, in that order.
func (c *Coordinator) publishAccount(a *model.Account, kind model.EventKind) []model.Event {
	payload := model.AccountPayload(a)
	return c.publish(
		[]string{model.AccountTopic(a.ID), model.TopicAccounts},
		kind, payload,
	)
}

func (c *Coordinator) publishTransactions(txs ...*model.Transaction) []model.Event {
	var events []model.Event
	for _, t := range txs {
		events = append(events, c.publish(
			[]string{model.TopicTransactions},
			model.KindTransactionCreated, model.TransactionPayload(t),
		)...)
	}
	return events
}

// publish sends a copy of payload to each topic, so the returned events
// never share a map. The store write already succeeded, so a publish
// failure is logged and does not fail the mutation.
func (c *Coordinator) publish(topics []string, kind model.EventKind, payload map[string]any) []model.Event {
	events := make([]model.Event, 0, len(topics))
	for _, topic := range topics {
		ev, err := c.pub.Publish(topic, kind, model.ClonePayload(payload))
		if err != nil {
			c.logger.Warn("publish failed", "topic", topic, "kind", kind, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}
