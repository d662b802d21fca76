package payments

import (
	"github.com/shopspring/decimal"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/predicate"
)

// Rule codes of the purchase rule set.
const (
	CodeCustomerOverdrawn = "customer_overdrawn"
	CodeReservedOverdrawn = "reserved_overdrawn"
	CodeBankOverdrawn     = "bank_overdrawn"
	CodeRefundedNonZero   = "refunded_non_zero"
	CodeIllegalRoute      = "illegal_route"
	CodeSystemUnbalanced  = "system_unbalanced"
)

// LegalRoutes are the only transfers a purchase may make.
var LegalRoutes = []ledger.Route{
	{Credit: Customer, Debit: Reserved},
	{Credit: Reserved, Debit: Customer},
	{Credit: Reserved, Debit: Bank},
	{Credit: Bank, Debit: Refunded},
	{Credit: Refunded, Debit: Customer},
}

// RuleSet is a purchase rule set. Each call builds fresh *Rule values so
// that independent books never share rule identities.
type RuleSet struct {
	// Customer account should never have positive balance.
	CustomerOverdrawn *ledger.Rule
	// Reserved account should never have negative balance.
	ReservedOverdrawn *ledger.Rule
	// Bank account should never have negative balance.
	BankOverdrawn *ledger.Rule
	// Refunded is a pass-through account and always balances to zero.
	RefundedNonZero *ledger.Rule
	// Disallow all routes not in LegalRoutes.
	IllegalRoute *ledger.Rule
	// All balances sum to zero.
	SystemUnbalanced *ledger.Rule
}

func NewRuleSet() RuleSet {
	return RuleSet{
		CustomerOverdrawn: ledger.NewRule(CodeCustomerOverdrawn, Customer.Balance(), predicate.Le(decimal.Zero)),
		ReservedOverdrawn: ledger.NewRule(CodeReservedOverdrawn, Reserved.Balance(), predicate.Ge(decimal.Zero)),
		BankOverdrawn:     ledger.NewRule(CodeBankOverdrawn, Bank.Balance(), predicate.Ge(decimal.Zero)),
		RefundedNonZero:   ledger.NewRule(CodeRefundedNonZero, Refunded.Balance(), predicate.Equal(decimal.Zero)),
		IllegalRoute:      ledger.NewRule(CodeIllegalRoute, ledger.HasOnlyRoutes(LegalRoutes...), predicate.Identical(true)),
		SystemUnbalanced:  ledger.NewRule(CodeSystemUnbalanced, ledger.SystemBalance(Accounts()...), predicate.Equal(decimal.Zero)),
	}
}

// Rules returns the set in declaration order.
func (rs RuleSet) Rules() []*ledger.Rule {
	return []*ledger.Rule{
		rs.CustomerOverdrawn,
		rs.ReservedOverdrawn,
		rs.BankOverdrawn,
		rs.RefundedNonZero,
		rs.IllegalRoute,
		rs.SystemUnbalanced,
	}
}
