// Package id defines TypeID-based identifiers for ledger records.
//
// IDs are K-sortable (UUIDv7-based), globally unique and URL-safe in the
// format "prefix_suffix", e.g. "txn_01h2xcejqtf2nbrexx3vqjhp41".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record type encoded in an ID.
type Prefix string

const (
	PrefixTransaction Prefix = "txn"
)

// ID wraps a TypeID.
type ID struct {
	inner typeid.TypeID
}

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid}
}

// NewTransactionID generates a new transaction ID.
func NewTransactionID() ID { return New(PrefixTransaction) }

// Parse parses a TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return ID{}, err
	}
	if parsed.Prefix() != expected {
		return ID{}, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// ParseTransactionID parses s and checks for the "txn" prefix.
func ParseTransactionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransaction) }

func (i ID) Prefix() Prefix { return Prefix(i.inner.Prefix()) }

func (i ID) String() string { return i.inner.String() }
