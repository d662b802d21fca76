/*
system.go - The verified, append-only ledger

PURPOSE:
  A System is a transaction history plus the rules that govern it.
  The only ways to obtain one are NewSystem and Append, and both verify
  every rule against the complete candidate history first.

CRITICAL INVARIANT:
  A System that exists has never violated any of its own rules.

APPEND:
  Append never touches the receiver. It copies the history into a new
  candidate, appends the new transactions and verifies. On success the
  candidate is returned; on failure it is dropped and the caller gets a
  *RuleViolationError listing every violated rule in declaration order.

COST:
  Verification is a full scan: O(transactions x rules) per append.
  There is no incremental evaluation.

CONCURRENCY:
  Systems are immutable and safe to share between readers. Two appends on
  the same base produce two independent Systems; serializing writers is the
  job of the caller (see book.Book).
*/
package ledger

import "iter"

// System is an immutable, always-valid ledger state.
type System struct {
	transactions []Transaction
	rules        []*Rule
}

// NewSystem verifies transactions against rules and returns the System.
// Both slices are copied.
func NewSystem(transactions []Transaction, rules ...*Rule) (*System, error) {
	candidate := &System{
		transactions: append([]Transaction(nil), transactions...),
		rules:        append([]*Rule(nil), rules...),
	}
	if violated := candidate.Verify(); len(violated) > 0 {
		return nil, &RuleViolationError{Rules: violated}
	}
	return candidate, nil
}

// Append returns a new System with txs added after the existing history.
// The receiver is left unchanged whatever the outcome.
func (s *System) Append(txs ...Transaction) (*System, error) {
	history := make([]Transaction, 0, len(s.transactions)+len(txs))
	history = append(history, s.transactions...)
	history = append(history, txs...)

	candidate := &System{transactions: history, rules: s.rules}
	if violated := candidate.Verify(); len(violated) > 0 {
		return nil, &RuleViolationError{Rules: violated}
	}
	return candidate, nil
}

// Verify evaluates every rule over the full history and returns the ones
// that fail, in declaration order. It has no side effects.
func (s *System) Verify() []*Rule {
	var violated []*Rule
	for _, rule := range s.rules {
		if !rule.Evaluate(s.transactions) {
			violated = append(violated, rule)
		}
	}
	return violated
}

// All yields the transactions oldest first.
func (s *System) All() iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range s.transactions {
			if !yield(tx) {
				return
			}
		}
	}
}

// Transactions returns a copy of the history.
func (s *System) Transactions() []Transaction {
	return append([]Transaction(nil), s.transactions...)
}

// Rules returns a copy of the rule set.
func (s *System) Rules() []*Rule {
	return append([]*Rule(nil), s.rules...)
}

func (s *System) Len() int { return len(s.transactions) }
