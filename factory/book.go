/*
Package factory provides JSON to Go book definition conversion.

PURPOSE:
  Converts JSON book definitions into a book.Definition: a chart of accounts
  and a rule set built from metrics and predicates. Books can then be
  created over HTTP or loaded from the database without code changes.

JSON SCHEMA:
  {
    "id": "purchase",
    "name": "Card purchase",
    "accounts": ["customer", "reserved", "bank", "refunded"],
    "rules": [
      {
        "code": "customer_overdrawn",
        "metric": {"type": "balance", "account": "customer"},
        "predicate": {"op": "le", "value": 0}
      },
      {
        "code": "illegal_route",
        "metric": {"type": "has_only_routes",
                   "routes": [["customer", "reserved"], ["reserved", "bank"]]},
        "predicate": {"op": "identical", "value": true}
      }
    ]
  }

METRIC TYPES:
  Numeric: credit, debit, balance (need "account"), system_balance
           ("accounts", defaults to the whole chart), count
  Boolean: has_routes ("routes", "bidirectional"), has_only_routes ("routes")
  Any metric may set "tag" to only look at transactions with that tag.

PREDICATE OPS:
  Numeric metrics: eq, le, ge, lt, gt (value is a number or numeric string)
  Boolean metrics: identical (value is true or false)

USAGE:
  f := factory.NewBookFactory()
  def, err := f.ParseBook(jsonString)
  b, err := book.Open(ctx, *def, store, logger)

SEE ALSO:
  - payments/presets.go: Ready-made JSON for the purchase flow
  - book/book.go: Definition type
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/predicate"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BookJSON is the JSON representation of a book definition.
type BookJSON struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Accounts []string   `json:"accounts"`
	Rules    []RuleJSON `json:"rules"`
}

// RuleJSON represents one rule.
type RuleJSON struct {
	Code      string        `json:"code"`
	Metric    MetricJSON    `json:"metric"`
	Predicate PredicateJSON `json:"predicate"`
}

// MetricJSON represents a metric configuration.
type MetricJSON struct {
	Type          string      `json:"type"`
	Account       string      `json:"account,omitempty"`
	Accounts      []string    `json:"accounts,omitempty"`
	Routes        [][2]string `json:"routes,omitempty"`
	Bidirectional bool        `json:"bidirectional,omitempty"`
	Tag           string      `json:"tag,omitempty"`
}

// PredicateJSON represents a comparison against a fixed value.
type PredicateJSON struct {
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value"`
}

const (
	MetricCredit        = "credit"
	MetricDebit         = "debit"
	MetricBalance       = "balance"
	MetricSystemBalance = "system_balance"
	MetricCount         = "count"
	MetricHasRoutes     = "has_routes"
	MetricHasOnlyRoutes = "has_only_routes"
)

// =============================================================================
// BOOK FACTORY
// =============================================================================

// BookFactory converts JSON definitions to book.Definition.
type BookFactory struct{}

// NewBookFactory creates a new book factory.
func NewBookFactory() *BookFactory {
	return &BookFactory{}
}

// ParseBook parses a JSON string into a Definition.
func (f *BookFactory) ParseBook(jsonStr string) (*book.Definition, error) {
	var bj BookJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return nil, fmt.Errorf("failed to parse book JSON: %w", err)
	}
	return f.FromJSON(bj)
}

// FromJSON converts BookJSON to a Definition.
func (f *BookFactory) FromJSON(bj BookJSON) (*book.Definition, error) {
	if bj.ID == "" {
		return nil, fmt.Errorf("book id is required")
	}
	if len(bj.Accounts) == 0 {
		return nil, fmt.Errorf("book %s: at least one account is required", bj.ID)
	}

	accounts := make([]ledger.Account, len(bj.Accounts))
	for i, name := range bj.Accounts {
		accounts[i] = ledger.AccountName(name)
	}
	chart, err := ledger.NewChart(accounts...)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", bj.ID, err)
	}

	def := &book.Definition{
		ID:    book.BookID(bj.ID),
		Name:  bj.Name,
		Chart: chart,
	}
	if def.Name == "" {
		def.Name = bj.ID
	}

	for i, rj := range bj.Rules {
		rule, err := parseRule(rj, chart)
		if err != nil {
			return nil, fmt.Errorf("book %s: rule %d (%s): %w", bj.ID, i, rj.Code, err)
		}
		def.Rules = append(def.Rules, rule)
	}

	return def, nil
}

// =============================================================================
// RULE PARSING
// =============================================================================

func parseRule(rj RuleJSON, chart ledger.Chart) (*ledger.Rule, error) {
	if rj.Code == "" {
		return nil, fmt.Errorf("rule code is required")
	}

	switch rj.Metric.Type {
	case MetricHasRoutes, MetricHasOnlyRoutes:
		metric, err := parseBoolMetric(rj.Metric, chart)
		if err != nil {
			return nil, err
		}
		pred, err := parseBoolPredicate(rj.Predicate)
		if err != nil {
			return nil, err
		}
		return ledger.NewRule(rj.Code, metric, pred), nil

	default:
		metric, err := parseNumericMetric(rj.Metric, chart)
		if err != nil {
			return nil, err
		}
		pred, err := parseNumericPredicate(rj.Predicate)
		if err != nil {
			return nil, err
		}
		return ledger.NewRule(rj.Code, metric, pred), nil
	}
}

// parseNumericMetric normalizes every numeric metric to decimal so one set
// of predicates covers amounts, balances and counts.
func parseNumericMetric(mj MetricJSON, chart ledger.Chart) (ledger.Metric[decimal.Decimal], error) {
	var metric ledger.Metric[decimal.Decimal]

	switch mj.Type {
	case MetricCredit, MetricDebit, MetricBalance:
		account, err := chart.Lookup(mj.Account)
		if err != nil {
			return nil, err
		}
		switch mj.Type {
		case MetricCredit:
			metric = amountMetric(ledger.Credit(account))
		case MetricDebit:
			metric = amountMetric(ledger.Debit(account))
		default:
			metric = ledger.Balance(account)
		}

	case MetricSystemBalance:
		accounts := chart.Accounts()
		if len(mj.Accounts) > 0 {
			var err error
			if accounts, err = lookupAll(chart, mj.Accounts); err != nil {
				return nil, err
			}
		}
		metric = ledger.SystemBalance(accounts...)

	case MetricCount:
		count := ledger.Count()
		metric = ledger.MetricFunc[decimal.Decimal](func(txs []ledger.Transaction) decimal.Decimal {
			return decimal.NewFromInt(int64(count.Evaluate(txs)))
		})

	default:
		return nil, fmt.Errorf("unknown metric type %q", mj.Type)
	}

	if mj.Tag != "" {
		return ledger.Tagged(mj.Tag, metric), nil
	}
	return metric, nil
}

func amountMetric(m ledger.Metric[ledger.Amount]) ledger.Metric[decimal.Decimal] {
	return ledger.MetricFunc[decimal.Decimal](func(txs []ledger.Transaction) decimal.Decimal {
		return m.Evaluate(txs).Decimal()
	})
}

func parseBoolMetric(mj MetricJSON, chart ledger.Chart) (ledger.Metric[bool], error) {
	if len(mj.Routes) == 0 {
		return nil, fmt.Errorf("%s needs at least one route", mj.Type)
	}
	routes := make([]ledger.Route, len(mj.Routes))
	for i, pair := range mj.Routes {
		endpoints, err := lookupAll(chart, pair[:])
		if err != nil {
			return nil, err
		}
		routes[i] = ledger.Route{Credit: endpoints[0], Debit: endpoints[1]}
	}

	var metric ledger.Metric[bool]
	if mj.Type == MetricHasRoutes {
		metric = ledger.HasRoutes(mj.Bidirectional, routes...)
	} else {
		metric = ledger.HasOnlyRoutes(routes...)
	}

	if mj.Tag != "" {
		return ledger.Tagged(mj.Tag, metric), nil
	}
	return metric, nil
}

func lookupAll(chart ledger.Chart, ids []string) ([]ledger.Account, error) {
	out := make([]ledger.Account, len(ids))
	for i, id := range ids {
		a, err := chart.Lookup(id)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// =============================================================================
// PREDICATE PARSING
// =============================================================================

func parseNumericPredicate(pj PredicateJSON) (predicate.Predicate[decimal.Decimal], error) {
	if err := requireValue(pj); err != nil {
		return nil, err
	}
	var value decimal.Decimal
	if err := value.UnmarshalJSON(pj.Value); err != nil {
		return nil, fmt.Errorf("predicate %s: value must be a number: %w", pj.Op, err)
	}

	switch pj.Op {
	case "eq":
		return predicate.Equal(value), nil
	case "le":
		return predicate.Le(value), nil
	case "ge":
		return predicate.Ge(value), nil
	case "lt":
		return predicate.Lt(value), nil
	case "gt":
		return predicate.Gt(value), nil
	case "identical":
		return nil, fmt.Errorf("identical applies to boolean metrics only")
	default:
		return nil, fmt.Errorf("unknown predicate op %q", pj.Op)
	}
}

func parseBoolPredicate(pj PredicateJSON) (predicate.Predicate[bool], error) {
	if pj.Op != "identical" {
		return nil, fmt.Errorf("boolean metrics only support identical, got %q", pj.Op)
	}
	if err := requireValue(pj); err != nil {
		return nil, err
	}
	var value bool
	if err := json.Unmarshal(pj.Value, &value); err != nil {
		return nil, fmt.Errorf("predicate identical: value must be true or false: %w", err)
	}
	return predicate.Identical(value), nil
}

// requireValue rejects a missing or null predicate value, which would
// otherwise decode to zero or false.
func requireValue(pj PredicateJSON) error {
	v := bytes.TrimSpace(pj.Value)
	if len(v) == 0 || string(v) == "null" {
		return fmt.Errorf("predicate %s: value is required", pj.Op)
	}
	return nil
}
