package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/predicate"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type account string

func (a account) AccountID() string { return string(a) }

const (
	customer         account = "customer"
	reserved         account = "reserved"
	captured         account = "captured"
	authorizedRefund account = "authorized_refund"
	refunded         account = "refunded"
	bank             account = "bank"
)

var allAccounts = []ledger.Account{customer, reserved, captured, authorizedRefund}

func tx(value int64, credit, debit account) ledger.Transaction {
	return ledger.NewTransaction(ledger.MustAmount(value), credit, debit)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDecimal(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(want).String(), got.String(), msgAndArgs...)
}

func assertAmount(t *testing.T, want int64, got ledger.Amount, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, ledger.MustAmount(want).String(), got.String(), msgAndArgs...)
}

func isBalanced() *ledger.Rule {
	return ledger.NewRule("system_unbalanced", ledger.SystemBalance(allAccounts...), predicate.Equal(decimal.Zero))
}

func noNegativeCaptured() *ledger.Rule {
	return ledger.NewRule("negative_captured_balance", ledger.Balance(captured), predicate.Ge(decimal.Zero))
}
