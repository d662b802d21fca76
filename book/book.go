/*
Package book keeps ledger Systems alive between requests.

PURPOSE:
  A ledger.System is an immutable value with no notion of storage or of
  concurrent writers. A Book is the single serialization point that turns a
  stream of append requests into one linear, persisted history:

    1. Lock the book (one writer at a time)
    2. Give unnamed transactions an id, check every id is a well-formed
       transaction id unique in the batch, every endpoint is in the chart
       and every idempotency key is new
    3. System.Append() - verify all rules over the full candidate history
    4. Persist the batch (all-or-nothing)
    5. Swap the new System in

  A rejected or failed append changes neither memory nor storage.

RECOVERY:
  Open() loads the stored history and rebuilds the System with
  ledger.NewSystem, so every rule is re-verified on startup. A history that
  no longer satisfies the rules refuses to open.

SEE ALSO:
  - store.go: Store interface
  - registry.go: Books by id
  - ledger/system.go: Verification
*/
package book

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/invariant-ledger/id"
	"github.com/warp/invariant-ledger/ledger"
)

// =============================================================================
// DEFINITION - What a book is
// =============================================================================

// Definition fixes a book's accounts and rules.
type Definition struct {
	ID    BookID
	Name  string
	Chart ledger.Chart
	Rules []*ledger.Rule
}

// =============================================================================
// BOOK - Persistent, single-writer System
// =============================================================================

type Book struct {
	def    Definition
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	current *ledger.System
}

// Open loads the persisted history of def.ID and verifies it.
func Open(ctx context.Context, def Definition, store Store, logger *slog.Logger) (*Book, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("book", string(def.ID))

	txs, err := store.Load(ctx, def.ID, def.Chart)
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", def.ID, err)
	}

	sys, err := ledger.NewSystem(txs, def.Rules...)
	if err != nil {
		logger.Error("stored history violates rules", "error", err)
		return nil, fmt.Errorf("open book %s: %w", def.ID, err)
	}

	logger.Debug("book opened", "transactions", sys.Len(), "rules", len(def.Rules))
	return &Book{def: def, store: store, logger: logger, current: sys}, nil
}

func (b *Book) ID() BookID             { return b.def.ID }
func (b *Book) Definition() Definition { return b.def }

// System returns the current valid state. The value is immutable; later
// appends do not affect it.
func (b *Book) System() *ledger.System {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Append verifies and persists txs as one batch and returns the new state.
func (b *Book) Append(ctx context.Context, txs ...ledger.Transaction) (*ledger.System, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	txs, err := assignIDs(txs)
	if err != nil {
		return nil, err
	}
	if err := b.checkChart(txs); err != nil {
		return nil, err
	}
	if err := b.checkIdempotency(ctx, txs); err != nil {
		return nil, err
	}

	next, err := b.current.Append(txs...)
	if err != nil {
		b.logger.Warn("append rejected", "transactions", len(txs), "error", err)
		return nil, err
	}

	if err := b.store.AppendBatch(ctx, b.def.ID, txs); err != nil {
		return nil, fmt.Errorf("persist book %s: %w", b.def.ID, err)
	}

	b.current = next
	b.logger.Info("append accepted", "transactions", len(txs), "history", next.Len())
	return next, nil
}

// assignIDs returns a copy of txs where every empty ID is replaced by a
// fresh transaction id. Given ids must parse and be unique in the batch;
// uniqueness against the stored history is enforced by the Store.
func assignIDs(txs []ledger.Transaction) ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, len(txs))
	seen := make(map[string]bool, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = id.NewTransactionID().String()
		} else if _, err := id.ParseTransactionID(tx.ID); err != nil {
			return nil, &ledger.DomainError{Field: "transaction id", Value: tx.ID, Reason: "not a transaction id"}
		}
		if seen[tx.ID] {
			return nil, ErrDuplicateTransactionID
		}
		seen[tx.ID] = true
		out[i] = tx
	}
	return out, nil
}

func (b *Book) checkChart(txs []ledger.Transaction) error {
	for _, tx := range txs {
		if !b.def.Chart.Contains(tx.Credit) {
			return &ledger.DomainError{Field: "credit", Value: accountID(tx.Credit), Reason: "not in chart"}
		}
		if !b.def.Chart.Contains(tx.Debit) {
			return &ledger.DomainError{Field: "debit", Value: accountID(tx.Debit), Reason: "not in chart"}
		}
	}
	return nil
}

func (b *Book) checkIdempotency(ctx context.Context, txs []ledger.Transaction) error {
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true

		exists, err := b.store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return nil
}

func accountID(a ledger.Account) string {
	if a == nil {
		return ""
	}
	return a.AccountID()
}

// =============================================================================
// BALANCES
// =============================================================================

// AccountBalance is the credit/debit/balance triple of one account.
type AccountBalance struct {
	Account ledger.Account
	Credit  ledger.Amount
	Debit   ledger.Amount
	Balance decimal.Decimal
}

// Balances reports every chart account over the current history.
func (b *Book) Balances() []AccountBalance {
	sys := b.System()
	accounts := b.def.Chart.Accounts()

	out := make([]AccountBalance, len(accounts))
	for i, a := range accounts {
		out[i] = AccountBalance{
			Account: a,
			Credit:  ledger.Measure(sys, ledger.Credit(a)),
			Debit:   ledger.Measure(sys, ledger.Debit(a)),
			Balance: ledger.Measure(sys, ledger.Balance(a)),
		}
	}
	return out
}

// SystemBalance sums every chart account; zero for any history whose
// endpoints lie inside the chart.
func (b *Book) SystemBalance() decimal.Decimal {
	return ledger.Measure(b.System(), ledger.SystemBalance(b.def.Chart.Accounts()...))
}
