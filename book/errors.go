package book

import (
	"errors"

	"github.com/warp/invariant-ledger/ledger"
)

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction reuses an
	// idempotency key. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrDuplicateTransactionID is returned when a transaction id is already
	// in the batch or in any stored history.
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")

	// ErrBookNotFound is returned when a referenced book doesn't exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookExists is returned when registering a book id twice.
	ErrBookExists = errors.New("book already exists")
)

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return ledger.IsClientError(err) || errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrDuplicateTransactionID)
}

// IsNotFound returns true if the error indicates a missing book.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound)
}
