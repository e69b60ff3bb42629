package model

import "fmt"

// Topic names used by the change bus.
const (
	// TopicAccounts receives every account change.
	TopicAccounts = "accounts"
	// TopicTransactions receives every transaction written by a transfer or deposit.
	TopicTransactions = "transactions"
)

// AccountTopic returns the per-account topic name.
func AccountTopic(id Key) string {
	return "account:" + id
}

// EventKind names the change an event describes.
type EventKind string

const (
	KindAccountOpened      EventKind = "account_opened"
	KindAccountUpdated     EventKind = "account_updated"
	KindTransactionCreated EventKind = "transaction_created"
)

// Event is an immutable change notification.
//
// Payload holds only canonical-JSON-safe values (string, int64, int, bool,
// nested []any and map[string]any). The bus hands every subscriber its own
// copy (see ClonePayload), so a subscriber may modify what it receives.
type Event struct {
	ID      string         `json:"id"`
	Topic   string         `json:"topic"`
	Seq     int64          `json:"seq"`
	Kind    EventKind      `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// String renders the event for text output.
func (e Event) String() string {
	return fmt.Sprintf("#%d %s %s %v", e.Seq, e.Topic, e.Kind, e.Payload)
}

// ClonePayload returns a deep copy of p. Nested maps and slices are
// copied; scalar values are shared. A nil payload stays nil.
func ClonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return ClonePayload(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// AccountPayload flattens an account into an event payload.
func AccountPayload(a *Account) map[string]any {
	return map[string]any{
		"id":      a.ID,
		"name":    a.Name,
		"owner":   a.Owner,
		"balance": a.Balance,
		"status":  string(a.Status),
		"seq":     a.Seq,
	}
}

// TransactionPayload flattens a transaction into an event payload.
func TransactionPayload(t *Transaction) map[string]any {
	return map[string]any{
		"id":              t.ID,
		"account_id":      t.AccountID,
		"counterparty_id": t.CounterpartyID,
		"amount":          t.Amount,
		"memo":            t.Memo,
		"seq":             t.Seq,
	}
}
