/*
errors.go - Error types for the verification engine

ERROR CATEGORIES:
  1. DomainError - a value outside its declared domain (negative amount,
     account not in chart). Fix the input; retrying is pointless.
  2. RuleViolationError - one or more rules failed for a candidate state.
     An expected, structured outcome: inspect the rules and try a different
     set of transactions.

USAGE:
  next, err := sys.Append(tx)
  var violation *ledger.RuleViolationError
  if errors.As(err, &violation) {
      for _, rule := range violation.Rules { ... }
  }
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleViolation is matched by every *RuleViolationError.
	ErrRuleViolation = errors.New("rule violation")

	// ErrDomain is matched by every *DomainError.
	ErrDomain = errors.New("value outside domain")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RuleViolationError carries every rule a candidate state violated,
// in the order the rules were declared.
type RuleViolationError struct {
	Rules []*Rule
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("rules violated: %s", strings.Join(e.Codes(), ", "))
}

func (e *RuleViolationError) Unwrap() error {
	return ErrRuleViolation
}

// Codes returns the codes of the violated rules.
func (e *RuleViolationError) Codes() []string {
	codes := make([]string, len(e.Rules))
	for i, r := range e.Rules {
		codes[i] = r.Code()
	}
	return codes
}

// Violates reports whether rule (by identity) is among the violated rules.
func (e *RuleViolationError) Violates(rule *Rule) bool {
	for _, r := range e.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

// DomainError reports a value outside its declared domain.
type DomainError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DomainError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// IsClientError returns true if the error is due to input the caller can fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRuleViolation) || errors.Is(err, ErrDomain)
}
