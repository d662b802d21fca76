/*
groups.go - Per-PSP subsystems

PURPOSE:
  A purchase may be paid with several payment methods at once (e.g. 250 on a
  credit card and 50 on a gift card). Each PSP can be checked in isolation
  before the purchase is checked as a whole:

    1. GroupByPSP:      split transactions by their tag, order preserved
    2. BuildSubsystems: one verified System per PSP
    3. Merge:           one System holding every subsystem's history

  BuildSubsystems does not stop at the first failing PSP; the error lists
  every PSP that broke a rule, with the rules it broke.
*/
package payments

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/warp/invariant-ledger/ledger"
)

// Groups maps each PSP to its transactions in original order.
type Groups map[PSP][]ledger.Transaction

// PSPs returns the group keys sorted by name.
func (g Groups) PSPs() []PSP { return sortedPSPs(g) }

// GroupByPSP splits txs by tag. Untagged transactions form the "" group.
func GroupByPSP(txs []ledger.Transaction) Groups {
	groups := make(Groups)
	for _, tx := range txs {
		psp := PSP(tx.Tag)
		groups[psp] = append(groups[psp], tx)
	}
	return groups
}

// Subsystems holds one verified System per PSP.
type Subsystems map[PSP]*ledger.System

// SubsystemError reports every PSP whose transactions violated the rules.
type SubsystemError struct {
	Failures map[PSP]*ledger.RuleViolationError
}

func (e *SubsystemError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, psp := range sortedPSPs(e.Failures) {
		parts = append(parts, fmt.Sprintf("%s: %s", psp, strings.Join(e.Failures[psp].Codes(), ", ")))
	}
	return "subsystems violated rules: " + strings.Join(parts, "; ")
}

func (e *SubsystemError) Unwrap() error { return ledger.ErrRuleViolation }

// BuildSubsystems verifies each group against rules.
func BuildSubsystems(groups Groups, rules ...*ledger.Rule) (Subsystems, error) {
	subsystems := make(Subsystems, len(groups))
	failures := make(map[PSP]*ledger.RuleViolationError)

	for _, psp := range groups.PSPs() {
		sys, err := ledger.NewSystem(groups[psp], rules...)
		if err != nil {
			var violation *ledger.RuleViolationError
			if !errors.As(err, &violation) {
				return nil, err
			}
			failures[psp] = violation
			continue
		}
		subsystems[psp] = sys
	}

	if len(failures) > 0 {
		return nil, &SubsystemError{Failures: failures}
	}
	return subsystems, nil
}

// Merge concatenates the subsystem histories (PSPs sorted by name) into one
// System verified against rules.
func Merge(subsystems Subsystems, rules ...*ledger.Rule) (*ledger.System, error) {
	var history []ledger.Transaction
	for _, psp := range sortedPSPs(subsystems) {
		history = append(history, subsystems[psp].Transactions()...)
	}
	return ledger.NewSystem(history, rules...)
}

func sortedPSPs[V any](m map[PSP]V) []PSP {
	keys := make([]PSP, 0, len(m))
	for psp := range m {
		keys = append(keys, psp)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
