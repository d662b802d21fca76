/*
Package payments is the purchase-flow schema built on the ledger engine.

PURPOSE:
  Shows how a domain defines its closed account enumeration, tags
  transactions with the payment service provider (PSP) that moved them and
  declares the business rules a purchase must never break.

ACCOUNTS:
  customer           the buyer; never holds a positive balance
  reserved           authorized but not captured funds
  captured           captured funds (two-phase flows)
  authorized_refund  refunds approved but not yet paid out
  refunded           pass-through account for refunds; always nets to zero
  bank               settled funds

FLOWS (credit -> debit):
  authorize:  customer -> reserved
  cancel:     reserved -> customer
  settle:     reserved -> bank
  refund:     bank -> refunded -> customer

SEE ALSO:
  - rules.go: The purchase rule set
  - groups.go: Per-PSP subsystems
  - presets.go: The same rules as factory JSON
*/
package payments

import (
	"github.com/shopspring/decimal"
	"github.com/warp/invariant-ledger/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type Account string

const (
	Customer         Account = "customer"
	Reserved         Account = "reserved"
	Captured         Account = "captured"
	AuthorizedRefund Account = "authorized_refund"
	Refunded         Account = "refunded"
	Bank             Account = "bank"
)

func (a Account) AccountID() string { return string(a) }

// Credit is shorthand for ledger.Credit(a).
func (a Account) Credit() ledger.CreditMetric { return ledger.Credit(a) }

// Debit is shorthand for ledger.Debit(a).
func (a Account) Debit() ledger.DebitMetric { return ledger.Debit(a) }

// Balance is shorthand for ledger.Balance(a).
func (a Account) Balance() ledger.BalanceMetric { return ledger.Balance(a) }

// BalanceOf evaluates a's balance over s.
func (a Account) BalanceOf(s *ledger.System) decimal.Decimal {
	return ledger.Measure(s, a.Balance())
}

// Accounts is the complete enumeration in declaration order.
func Accounts() []ledger.Account {
	return []ledger.Account{Customer, Reserved, Captured, AuthorizedRefund, Refunded, Bank}
}

// Chart is the closed account set for purchase books.
func Chart() ledger.Chart {
	return ledger.MustChart(Accounts()...)
}

// =============================================================================
// PSP - Payment service provider tag
// =============================================================================

type PSP string

const (
	CreditCard PSP = "credit_card"
	GiftCard   PSP = "gift_card"
)

// Transfer builds a transaction tagged with psp.
func Transfer(psp PSP, value int64, credit, debit Account) (ledger.Transaction, error) {
	amount, err := ledger.NewAmount(value)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.NewTransaction(amount, credit, debit).WithTag(string(psp)), nil
}

// MustTransfer is like Transfer but panics on error. Use for hardcoded flows.
func MustTransfer(psp PSP, value int64, credit, debit Account) ledger.Transaction {
	tx, err := Transfer(psp, value, credit, debit)
	if err != nil {
		panic(err)
	}
	return tx
}
