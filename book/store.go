/*
store.go - Persistence interface for book histories

PURPOSE:
  Defines the boundary between a Book and its storage. A Store only ever
  receives histories that already passed verification, so it never needs to
  understand rules; it only has to keep transactions in insertion order and
  honour the append-only contract.

APPEND-ONLY CONTRACT:
  - AppendBatch(): the ONLY write operation, all-or-nothing
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  A transaction may carry an idempotency key. A key is accepted once across
  all books; a retry with the same key is rejected with
  ErrDuplicateIdempotencyKey.

IMPLEMENTATIONS:
  - book/store/memory.go: In-memory for testing and development
  - store/sqlite/sqlite.go: SQLite
*/
package book

import (
	"context"

	"github.com/warp/invariant-ledger/ledger"
)

// BookID names a book.
type BookID string

// Store persists verified transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// AppendBatch persists txs after the existing history of bookID.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, bookID BookID, txs []ledger.Transaction) error

	// Load returns the history of bookID in insertion order. Account ids
	// are resolved through chart.
	Load(ctx context.Context, bookID BookID, chart ledger.Chart) ([]ledger.Transaction, error)

	// Exists checks if an idempotency key was already used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
