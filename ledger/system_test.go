package ledger_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/predicate"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewSystem_CaptureFlow(t *testing.T) {
	// GIVEN: authorize 100, capture 100 directly, capture the reservation
	// THEN: the system is valid and balances follow

	balanced := isBalanced()
	positive := noNegativeCaptured()

	sys, err := ledger.NewSystem([]ledger.Transaction{
		tx(100, customer, reserved),
		tx(100, customer, captured),
		tx(100, reserved, captured),
	}, balanced, positive)
	require.NoError(t, err)

	assertDecimal(t, 0, ledger.Measure(sys, ledger.Balance(reserved)))
	assertDecimal(t, -200, ledger.Measure(sys, ledger.Balance(customer)))
	assertDecimal(t, 200, ledger.Measure(sys, ledger.Balance(captured)))
	assert.Equal(t, 3, sys.Len())
}

func TestNewSystem_InvalidHistoryRejected(t *testing.T) {
	positive := noNegativeCaptured()

	sys, err := ledger.NewSystem([]ledger.Transaction{tx(1, captured, customer)}, positive)

	assert.Nil(t, sys)
	var violation *ledger.RuleViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, []*ledger.Rule{positive}, violation.Rules)
	assert.ErrorIs(t, err, ledger.ErrRuleViolation)
}

func TestNewSystem_CopiesInputs(t *testing.T) {
	txs := []ledger.Transaction{tx(5, customer, reserved)}
	sys, err := ledger.NewSystem(txs)
	require.NoError(t, err)

	txs[0] = tx(999, customer, captured)

	assertAmount(t, 5, sys.Transactions()[0].Value, "caller slice must not alias the system")
}

// =============================================================================
// APPEND
// =============================================================================

func TestAppend_RejectedOverdraft(t *testing.T) {
	// GIVEN: captured 200 then refunded 200, captured balance is 0
	// WHEN: refunding 1 more
	// THEN: RuleViolation naming exactly the captured-balance rule; history unchanged

	positive := noNegativeCaptured()
	sys, err := ledger.NewSystem([]ledger.Transaction{
		tx(200, customer, captured),
	}, isBalanced(), positive)
	require.NoError(t, err)

	sys, err = sys.Append(
		tx(200, captured, authorizedRefund),
		tx(200, authorizedRefund, customer),
	)
	require.NoError(t, err)
	assertDecimal(t, 0, ledger.Measure(sys, ledger.Balance(captured)))
	assertDecimal(t, 0, ledger.Measure(sys, ledger.Balance(customer)))

	before := sys.Transactions()

	next, err := sys.Append(tx(1, captured, authorizedRefund))

	assert.Nil(t, next)
	var violation *ledger.RuleViolationError
	require.ErrorAs(t, err, &violation)
	require.Len(t, violation.Rules, 1)
	assert.Same(t, positive, violation.Rules[0])
	assert.Equal(t, before, sys.Transactions())
	assert.Equal(t, 3, sys.Len())
}

func TestAppend_DoesNotMutateReceiver(t *testing.T) {
	base, err := ledger.NewSystem([]ledger.Transaction{tx(10, customer, reserved)})
	require.NoError(t, err)

	a, err := base.Append(tx(1, customer, reserved))
	require.NoError(t, err)
	b, err := base.Append(tx(2, customer, captured))
	require.NoError(t, err)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
	assertAmount(t, 1, a.Transactions()[1].Value, "sibling append must not overwrite")
	assertAmount(t, 2, b.Transactions()[1].Value)
}

func TestAppend_BatchIsAllOrNothing(t *testing.T) {
	positive := noNegativeCaptured()
	base, err := ledger.NewSystem(nil, positive)
	require.NoError(t, err)

	// The first transaction alone is fine, the second breaks the rule
	_, err = base.Append(
		tx(5, customer, captured),
		tx(6, captured, customer),
	)

	require.Error(t, err)
	assert.Equal(t, 0, base.Len())
}

func TestAppend_PreservesOrderAndRules(t *testing.T) {
	rule := isBalanced()
	base, err := ledger.NewSystem([]ledger.Transaction{tx(1, customer, reserved)}, rule)
	require.NoError(t, err)

	next, err := base.Append(tx(2, reserved, captured), tx(3, captured, customer))
	require.NoError(t, err)

	var values []string
	for tx := range next.All() {
		values = append(values, tx.Value.String())
	}
	assert.Equal(t, []string{"1", "2", "3"}, values)
	assert.Equal(t, []*ledger.Rule{rule}, next.Rules())
}

func TestAll_StopsEarly(t *testing.T) {
	sys, err := ledger.NewSystem([]ledger.Transaction{
		tx(1, customer, reserved), tx(2, customer, reserved), tx(3, customer, reserved),
	})
	require.NoError(t, err)

	seen := 0
	for range sys.All() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
	assert.Len(t, slices.Collect(sys.All()), 3)
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestVerify_IsIdempotent(t *testing.T) {
	sys, err := ledger.NewSystem([]ledger.Transaction{tx(3, customer, captured)}, isBalanced(), noNegativeCaptured())
	require.NoError(t, err)

	assert.Empty(t, sys.Verify())
	assert.Empty(t, sys.Verify())
	assert.Equal(t, 1, sys.Len())
}

func TestVerify_ReportsAllViolationsInOrder(t *testing.T) {
	// GIVEN: two independent rules
	// WHEN: one append violates both
	// THEN: both are reported, in declaration order

	reservedCap := ledger.NewRule("reserved_cap", ledger.Balance(reserved), predicate.Le(dec(100)))
	noRefund := ledger.NewRule("no_refund", ledger.HasRoutes(false, ledger.Route{Credit: captured, Debit: customer}), predicate.Identical(false))
	positive := noNegativeCaptured()

	sys, err := ledger.NewSystem(nil, reservedCap, positive, noRefund)
	require.NoError(t, err)

	_, err = sys.Append(
		tx(500, customer, reserved),
		tx(1, captured, customer),
	)

	var violation *ledger.RuleViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, []*ledger.Rule{reservedCap, positive, noRefund}, violation.Rules)
	assert.Equal(t, []string{"reserved_cap", "negative_captured_balance", "no_refund"}, violation.Codes())
}

func TestVerify_RulesComparedByIdentity(t *testing.T) {
	// Two rules share a code; only one of them fails
	strict := ledger.NewRule("reserved", ledger.Balance(reserved), predicate.Le(dec(0)))
	loose := ledger.NewRule("reserved", ledger.Balance(reserved), predicate.Le(dec(1000)))

	sys, err := ledger.NewSystem(nil, loose, strict)
	require.NoError(t, err)

	_, err = sys.Append(tx(10, customer, reserved))

	var violation *ledger.RuleViolationError
	require.ErrorAs(t, err, &violation)
	assert.True(t, violation.Violates(strict))
	assert.False(t, violation.Violates(loose))
}

func TestHasRoutes_DisallowedInBothDirections(t *testing.T) {
	disallow := ledger.NewRule("illegal_transaction",
		ledger.HasRoutes(true, ledger.Route{Credit: customer, Debit: captured}),
		predicate.Identical(false))

	limited, err := ledger.NewSystem(nil, disallow)
	require.NoError(t, err)

	for _, candidate := range []ledger.Transaction{tx(1, captured, customer), tx(1, customer, captured)} {
		_, err := limited.Append(candidate)
		var violation *ledger.RuleViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, []*ledger.Rule{disallow}, violation.Rules)
	}
}

func TestHasOnlyRoutes_IllegalRouteOnly(t *testing.T) {
	// GIVEN: the purchase allow-list plus balance rules
	// WHEN: customer -> bank is attempted
	// THEN: only the route rule fails

	legal := ledger.NewRule("illegal_route", ledger.HasOnlyRoutes(
		ledger.Route{Credit: customer, Debit: reserved},
		ledger.Route{Credit: reserved, Debit: customer},
		ledger.Route{Credit: reserved, Debit: bank},
		ledger.Route{Credit: bank, Debit: refunded},
		ledger.Route{Credit: refunded, Debit: customer},
	), predicate.Identical(true))
	customerLe := ledger.NewRule("customer_overdrawn", ledger.Balance(customer), predicate.Le(decimal.Zero))
	bankGe := ledger.NewRule("bank_overdrawn", ledger.Balance(bank), predicate.Ge(decimal.Zero))

	sys, err := ledger.NewSystem(nil, customerLe, bankGe, legal)
	require.NoError(t, err)

	_, err = sys.Append(tx(1, customer, bank))

	var violation *ledger.RuleViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, []string{"illegal_route"}, violation.Codes())
}

func TestRule_MeasureAndString(t *testing.T) {
	rule := noNegativeCaptured()
	txs := []ledger.Transaction{tx(7, customer, captured)}

	assert.True(t, rule.Evaluate(txs))
	assert.Equal(t, "7", rule.Measure(txs).(decimal.Decimal).String())
	assert.Equal(t, "Rule(code=negative_captured_balance)", rule.String())
}

func TestRuleViolationError_Message(t *testing.T) {
	err := error(&ledger.RuleViolationError{Rules: []*ledger.Rule{isBalanced(), noNegativeCaptured()}})

	assert.Equal(t, "rules violated: system_unbalanced, negative_captured_balance", err.Error())
	assert.True(t, errors.Is(err, ledger.ErrRuleViolation))
	assert.True(t, ledger.IsClientError(err))
}
