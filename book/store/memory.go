// Package store provides book.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[book.BookID][]ledger.Transaction
	idempotency  map[string]bool
	ids          map[string]bool

	// failNext makes the next AppendBatch fail; used to exercise rollback paths.
	failNext error
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[book.BookID][]ledger.Transaction),
		idempotency:  make(map[string]bool),
		ids:          make(map[string]bool),
	}
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, bookID book.BookID, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}

	// Check all ids and idempotency keys first (atomic check)
	batchIDs := make(map[string]bool, len(txs))
	batch := make(map[string]bool)
	for _, tx := range txs {
		if m.ids[tx.ID] || batchIDs[tx.ID] {
			return book.ErrDuplicateTransactionID
		}
		batchIDs[tx.ID] = true

		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || batch[tx.IdempotencyKey] {
			return book.ErrDuplicateIdempotencyKey
		}
		batch[tx.IdempotencyKey] = true
	}

	// Append all (atomic write)
	m.transactions[bookID] = append(m.transactions[bookID], txs...)
	for key := range batch {
		m.idempotency[key] = true
	}
	for id := range batchIDs {
		m.ids[id] = true
	}
	return nil
}

// Load returns the history of bookID with accounts re-resolved through chart.
func (m *Memory) Load(_ context.Context, bookID book.BookID, chart ledger.Chart) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.transactions[bookID]
	result := make([]ledger.Transaction, len(stored))
	for i, tx := range stored {
		credit, err := chart.Lookup(tx.Credit.AccountID())
		if err != nil {
			return nil, err
		}
		debit, err := chart.Lookup(tx.Debit.AccountID())
		if err != nil {
			return nil, err
		}
		tx.Credit, tx.Debit = credit, debit
		result[i] = tx
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// FailNextAppend makes the next AppendBatch return err without writing.
func (m *Memory) FailNextAppend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}
