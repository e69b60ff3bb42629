// Package store provides the SQLite-backed record store for accounts and
// their transactions.
//
// The store is the illustrative dataset behind the batched data-access
// layer. It offers:
//   - Batch point lookups (FetchAccounts, FetchTransactions) returning one
//     entry per requested ID, in request order, nil for absent records
//   - Batch related-record lookups (TransactionsByAccount)
//   - Ordered snapshots for cursor pagination (ListAccounts)
//   - Atomic writes (InsertAccount, UpdateAccount, ApplyTransfer, ApplyDeposit)
//
// # Critical Patterns
//
// Single writer: the pool holds exactly one connection and every write
// runs in one SQL transaction, so conflicting writes to the same account
// are serialised.
//
// Logical time: every write is stamped from the seq counter in the meta
// table, never from wall-clock time.
//
// Deterministic results: list queries ORDER BY a unique key with
// COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
