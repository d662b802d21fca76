package ledger

import (
	"fmt"

	"github.com/warp/invariant-ledger/predicate"
)

// =============================================================================
// RULE - A named business invariant
// =============================================================================

// Rule pairs a metric with a predicate under a human-readable code.
// A Rule is itself a Metric[bool].
//
// Rules are compared by identity: failure reports carry *Rule values, so a
// caller can tell apart two rules that share a code.
type Rule struct {
	code    string
	measure func(txs []Transaction) any
	check   func(txs []Transaction) bool
}

// NewRule builds a rule from a metric and a predicate over its value.
func NewRule[V any](code string, metric Metric[V], pred predicate.Predicate[V]) *Rule {
	return &Rule{
		code:    code,
		measure: func(txs []Transaction) any { return metric.Evaluate(txs) },
		check:   func(txs []Transaction) bool { return pred(metric.Evaluate(txs)) },
	}
}

// Code identifies the rule in failure reports. Not necessarily unique.
func (r *Rule) Code() string { return r.code }

// Evaluate reports whether the rule holds for txs.
func (r *Rule) Evaluate(txs []Transaction) bool { return r.check(txs) }

// Measure returns the underlying metric value for txs, for diagnostics.
func (r *Rule) Measure(txs []Transaction) any { return r.measure(txs) }

func (r *Rule) String() string { return fmt.Sprintf("Rule(code=%s)", r.code) }
