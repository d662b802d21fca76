package payments

import "fmt"

// PurchaseBookJSON returns the purchase rule set as factory JSON, for books
// created over HTTP or stored in the database.
func PurchaseBookJSON(id, name string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "name": %q,
  "accounts": ["customer", "reserved", "captured", "authorized_refund", "refunded", "bank"],
  "rules": [
    {"code": "customer_overdrawn", "metric": {"type": "balance", "account": "customer"}, "predicate": {"op": "le", "value": 0}},
    {"code": "reserved_overdrawn", "metric": {"type": "balance", "account": "reserved"}, "predicate": {"op": "ge", "value": 0}},
    {"code": "bank_overdrawn", "metric": {"type": "balance", "account": "bank"}, "predicate": {"op": "ge", "value": 0}},
    {"code": "refunded_non_zero", "metric": {"type": "balance", "account": "refunded"}, "predicate": {"op": "eq", "value": 0}},
    {"code": "illegal_route", "metric": {"type": "has_only_routes", "routes": [
      ["customer", "reserved"], ["reserved", "customer"], ["reserved", "bank"], ["bank", "refunded"], ["refunded", "customer"]
    ]}, "predicate": {"op": "identical", "value": true}},
    {"code": "system_unbalanced", "metric": {"type": "system_balance"}, "predicate": {"op": "eq", "value": 0}}
  ]
}`, id, name)
}

// CaptureBookJSON is a two-phase card book: funds move through captured
// before an approved refund, and captured may never go negative.
func CaptureBookJSON(id, name string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "name": %q,
  "accounts": ["customer", "reserved", "captured", "authorized_refund"],
  "rules": [
    {"code": "system_unbalanced", "metric": {"type": "system_balance"}, "predicate": {"op": "eq", "value": 0}},
    {"code": "negative_captured_balance", "metric": {"type": "balance", "account": "captured"}, "predicate": {"op": "ge", "value": 0}},
    {"code": "illegal_transaction", "metric": {"type": "has_routes", "bidirectional": true, "routes": [["customer", "captured"]]}, "predicate": {"op": "identical", "value": false}}
  ]
}`, id, name)
}
