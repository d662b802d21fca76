/*
metric.go - Pure aggregations over a transaction history

PURPOSE:
  A Metric extracts one value from an ordered sequence of transactions:
  how much an account received, its balance, whether a route was used.
  Rules judge metric values; the System re-evaluates every metric over
  the entire history on each append.

CONTRACT:
  - Total: defined for every finite sequence, including the empty one
    (sums are 0, HasRoutes is false, HasOnlyRoutes is true)
  - Pure: same sequence, same value; no side effects
  - Read-only: a metric must not modify the slice it is given

BUILT-INS:
  Credit(a)          sum of Value where Credit == a          -> Amount
  Debit(a)           sum of Value where Debit == a           -> Amount
  Balance(a)         Debit(a) - Credit(a)                    -> decimal (signed)
  SystemBalance(as)  sum of Balance over as                  -> decimal (signed)
  Count()            number of transactions                  -> int
  HasRoutes          any transaction on one of the routes    -> bool
  HasOnlyRoutes      every transaction on one of the routes  -> bool
  Filter / Tagged    any metric over a subsequence

CONSERVATION:
  Every transaction adds the same value to one account's debit sum and to
  another account's credit sum, so SystemBalance over a chart covering all
  endpoints is always 0.
*/
package ledger

import "github.com/shopspring/decimal"

// Metric computes a value of type V from a transaction sequence.
type Metric[V any] interface {
	Evaluate(txs []Transaction) V
}

// MetricFunc adapts a plain function to the Metric interface.
type MetricFunc[V any] func(txs []Transaction) V

func (f MetricFunc[V]) Evaluate(txs []Transaction) V { return f(txs) }

// Measure evaluates m against the full history of s.
func Measure[V any](s *System, m Metric[V]) V {
	return m.Evaluate(s.transactions)
}

// =============================================================================
// ACCOUNT METRICS
// =============================================================================

// CreditMetric sums the value credited from Account.
type CreditMetric struct {
	Account Account
}

func Credit(a Account) CreditMetric { return CreditMetric{Account: a} }

func (m CreditMetric) Evaluate(txs []Transaction) Amount {
	total := ZeroAmount
	for _, tx := range txs {
		if tx.Credit == m.Account {
			total = total.Add(tx.Value)
		}
	}
	return total
}

// DebitMetric sums the value debited to Account.
type DebitMetric struct {
	Account Account
}

func Debit(a Account) DebitMetric { return DebitMetric{Account: a} }

func (m DebitMetric) Evaluate(txs []Transaction) Amount {
	total := ZeroAmount
	for _, tx := range txs {
		if tx.Debit == m.Account {
			total = total.Add(tx.Value)
		}
	}
	return total
}

// BalanceMetric is debit minus credit. It may be negative.
type BalanceMetric struct {
	Account Account
}

func Balance(a Account) BalanceMetric { return BalanceMetric{Account: a} }

func (m BalanceMetric) Evaluate(txs []Transaction) decimal.Decimal {
	debit := Debit(m.Account).Evaluate(txs)
	credit := Credit(m.Account).Evaluate(txs)
	return debit.Decimal().Sub(credit.Decimal())
}

// SystemBalanceMetric sums the balances of a set of accounts.
type SystemBalanceMetric struct {
	Accounts []Account
}

func SystemBalance(accounts ...Account) SystemBalanceMetric {
	return SystemBalanceMetric{Accounts: append([]Account(nil), accounts...)}
}

func (m SystemBalanceMetric) Evaluate(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.Accounts {
		total = total.Add(Balance(a).Evaluate(txs))
	}
	return total
}

// CountMetric is the number of transactions.
type CountMetric struct{}

func Count() CountMetric { return CountMetric{} }

func (CountMetric) Evaluate(txs []Transaction) int { return len(txs) }

// =============================================================================
// ROUTE METRICS
// =============================================================================

// HasRoutesMetric is true if any transaction travels one of Routes, or its
// reverse when Bidirectional is set. Stops at the first match.
type HasRoutesMetric struct {
	Routes        []Route
	Bidirectional bool
}

func HasRoutes(bidirectional bool, routes ...Route) HasRoutesMetric {
	return HasRoutesMetric{Routes: append([]Route(nil), routes...), Bidirectional: bidirectional}
}

func (m HasRoutesMetric) Evaluate(txs []Transaction) bool {
	for _, tx := range txs {
		r := RouteOf(tx)
		if containsRoute(m.Routes, r) || (m.Bidirectional && containsRoute(m.Routes, r.Reverse())) {
			return true
		}
	}
	return false
}

// HasOnlyRoutesMetric is true iff every transaction travels one of Routes.
// Reverse routes are not implied. True for an empty history.
type HasOnlyRoutesMetric struct {
	Routes []Route
}

func HasOnlyRoutes(routes ...Route) HasOnlyRoutesMetric {
	return HasOnlyRoutesMetric{Routes: append([]Route(nil), routes...)}
}

func (m HasOnlyRoutesMetric) Evaluate(txs []Transaction) bool {
	for _, tx := range txs {
		if !containsRoute(m.Routes, RouteOf(tx)) {
			return false
		}
	}
	return true
}

func containsRoute(routes []Route, r Route) bool {
	for _, candidate := range routes {
		if candidate == r {
			return true
		}
	}
	return false
}

// =============================================================================
// COMBINATORS
// =============================================================================

// FilterMetric evaluates Inner over the transactions accepted by Keep,
// preserving order.
type FilterMetric[V any] struct {
	Keep  func(Transaction) bool
	Inner Metric[V]
}

func Filter[V any](keep func(Transaction) bool, inner Metric[V]) FilterMetric[V] {
	return FilterMetric[V]{Keep: keep, Inner: inner}
}

func (m FilterMetric[V]) Evaluate(txs []Transaction) V {
	kept := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if m.Keep(tx) {
			kept = append(kept, tx)
		}
	}
	return m.Inner.Evaluate(kept)
}

// Tagged restricts inner to transactions carrying tag.
func Tagged[V any](tag string, inner Metric[V]) FilterMetric[V] {
	return Filter(func(tx Transaction) bool { return tx.Tag == tag }, inner)
}
