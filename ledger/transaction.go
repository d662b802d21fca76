package ledger

import "github.com/warp/invariant-ledger/id"

// =============================================================================
// TRANSACTION - Immutable transfer between two accounts
// =============================================================================

// Transaction moves Value out of Credit and into Debit.
//
// Only Value, Credit and Debit take part in verification. ID, Tag and
// IdempotencyKey are carried for callers (persistence, grouping by payment
// method, retries) and are never interpreted by the engine.
type Transaction struct {
	ID     string
	Value  Amount
	Credit Account
	Debit  Account

	Tag            string // e.g. payment service provider
	IdempotencyKey string
}

// NewTransaction creates a transaction with a fresh identifier.
func NewTransaction(value Amount, credit, debit Account) Transaction {
	return Transaction{
		ID:     id.NewTransactionID().String(),
		Value:  value,
		Credit: credit,
		Debit:  debit,
	}
}

// WithTag returns a copy of tx carrying the given tag.
func (tx Transaction) WithTag(tag string) Transaction {
	tx.Tag = tag
	return tx
}

// WithIdempotencyKey returns a copy of tx carrying the given key.
func (tx Transaction) WithIdempotencyKey(key string) Transaction {
	tx.IdempotencyKey = key
	return tx
}
