/*
Package ledger provides the rule-verification engine for double-entry ledgers.

PURPOSE:
  A caller defines a closed set of accounts, records value transfers between
  them and declares business rules. Every rule is a metric over the full
  transaction history judged by a predicate. A System is only ever handed out
  when all of its rules hold; a mutation that would break any rule is rejected
  as a whole and the complete list of violated rules is reported.

KEY CONCEPTS IN THIS FILE (account.go):
  - Account: an opaque identifier from a closed, caller-defined enumeration
  - Chart: the fixed set of accounts a book is allowed to use
  - Route: an ordered (credit, debit) account pair

DESIGN PRINCIPLES:
  1. Immutability: Systems and Transactions are never modified after creation
  2. Purity: Metrics and predicates are side-effect free functions
  3. All-or-nothing: A batch of transactions is admitted entirely or not at all
  4. No I/O: persistence and concurrency live in the book package

USAGE:
  type Account string
  func (a Account) AccountID() string { return string(a) }

  const (
      Customer Account = "customer"
      Reserved Account = "reserved"
  )

  sys, err := ledger.NewSystem(nil, ledger.NewRule("reserved_overdrawn",
      ledger.Balance(Reserved), predicate.Ge(decimal.Zero)))

SEE ALSO:
  - metric.go: Built-in metrics (Credit, Debit, Balance, routes)
  - rule.go: Rule = code + metric + predicate
  - system.go: The verified, append-only System
*/
package ledger

import "fmt"

// =============================================================================
// ACCOUNT - Closed enumeration defined by the caller
// =============================================================================

// Account identifies a participant in the ledger.
// Domain packages define their own concrete (comparable) types:
//
//	// In payments/schema.go
//	type Account string
//	func (a Account) AccountID() string { return string(a) }
//	const Customer Account = "customer"
//
// Two accounts are the same account iff they compare equal with ==.
type Account interface {
	AccountID() string
}

// AccountName is a plain string account, used by books whose chart is
// defined at runtime (e.g. from JSON).
type AccountName string

func (a AccountName) AccountID() string { return string(a) }

// =============================================================================
// CHART - The fixed account set of a book
// =============================================================================

// Chart is a closed, ordered set of accounts. It is fixed at construction.
type Chart struct {
	accounts []Account
	byID     map[string]Account
}

// NewChart builds a chart. Identifiers must be non-empty and unique.
func NewChart(accounts ...Account) (Chart, error) {
	c := Chart{
		accounts: make([]Account, 0, len(accounts)),
		byID:     make(map[string]Account, len(accounts)),
	}
	for _, a := range accounts {
		if a == nil || a.AccountID() == "" {
			return Chart{}, &DomainError{Field: "account", Reason: "empty account identifier"}
		}
		if _, dup := c.byID[a.AccountID()]; dup {
			return Chart{}, &DomainError{Field: "account", Value: a.AccountID(), Reason: "duplicate account"}
		}
		c.byID[a.AccountID()] = a
		c.accounts = append(c.accounts, a)
	}
	return c, nil
}

// MustChart is like NewChart but panics on error. Use for hardcoded charts.
func MustChart(accounts ...Account) Chart {
	c, err := NewChart(accounts...)
	if err != nil {
		panic(fmt.Sprintf("ledger: must chart: %v", err))
	}
	return c
}

// Accounts returns the accounts in declaration order.
func (c Chart) Accounts() []Account {
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Lookup resolves an account identifier. Unknown identifiers are outside
// the chart's domain.
func (c Chart) Lookup(id string) (Account, error) {
	if a, ok := c.byID[id]; ok {
		return a, nil
	}
	return nil, &DomainError{Field: "account", Value: id, Reason: "not in chart"}
}

// Contains reports whether a is one of the chart's accounts.
func (c Chart) Contains(a Account) bool {
	if a == nil {
		return false
	}
	known, ok := c.byID[a.AccountID()]
	return ok && known == a
}

func (c Chart) Len() int { return len(c.accounts) }

// =============================================================================
// ROUTE - Direction of a transfer
// =============================================================================

// Route is an ordered (credit, debit) pair.
type Route struct {
	Credit Account
	Debit  Account
}

// RouteOf returns the route a transaction travels.
func RouteOf(tx Transaction) Route {
	return Route{Credit: tx.Credit, Debit: tx.Debit}
}

// Reverse swaps credit and debit.
func (r Route) Reverse() Route {
	return Route{Credit: r.Debit, Debit: r.Credit}
}

func (r Route) String() string {
	return fmt.Sprintf("%s->%s", accountID(r.Credit), accountID(r.Debit))
}

func accountID(a Account) string {
	if a == nil {
		return "<nil>"
	}
	return a.AccountID()
}
