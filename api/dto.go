/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger types from the external API contract: accounts travel as
  their identifiers, amounts and balances as decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Books:        BookDTO
  Transactions: TransactionDTO, AppendRequest, TransactionRequest, AppendResponse
  Balances:     BalanceDTO, BalancesResponse
  Rules:        RuleDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse
  Errors:       ErrorResponse

VALIDATION:
  Validation is done in handlers and the ledger package, not in DTOs.
  The one exception is ledger.Amount, which refuses null, negative and
  fractional values while decoding.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/book.go: BookJSON, the body of POST /api/books
*/
package api

import (
	"time"

	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/ledger"
)

// =============================================================================
// BOOKS
// =============================================================================

// BookDTO represents a book in API responses.
type BookDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Accounts      []string `json:"accounts"`
	Rules         []string `json:"rules"`
	Transactions  int      `json:"transactions"`
	SystemBalance string   `json:"system_balance"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

func toBookDTO(b *book.Book, createdAt time.Time) BookDTO {
	def := b.Definition()

	accounts := make([]string, 0, def.Chart.Len())
	for _, a := range def.Chart.Accounts() {
		accounts = append(accounts, a.AccountID())
	}
	rules := make([]string, len(def.Rules))
	for i, r := range def.Rules {
		rules[i] = r.Code()
	}

	dto := BookDTO{
		ID:            string(def.ID),
		Name:          def.Name,
		Accounts:      accounts,
		Rules:         rules,
		Transactions:  b.System().Len(),
		SystemBalance: b.SystemBalance().String(),
	}
	if !createdAt.IsZero() {
		dto.CreatedAt = createdAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a stored transaction.
type TransactionDTO struct {
	ID             string        `json:"id"`
	Value          ledger.Amount `json:"value"`
	Credit         string        `json:"credit"`
	Debit          string        `json:"debit"`
	Tag            string        `json:"tag,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:             tx.ID,
			Value:          tx.Value,
			Credit:         tx.Credit.AccountID(),
			Debit:          tx.Debit.AccountID(),
			Tag:            tx.Tag,
			IdempotencyKey: tx.IdempotencyKey,
		}
	}
	return dtos
}

// TransactionRequest is one transaction of an append batch.
type TransactionRequest struct {
	Value          *ledger.Amount `json:"value"`
	Credit         string         `json:"credit"`
	Debit          string         `json:"debit"`
	Tag            string         `json:"tag,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// AppendRequest is an all-or-nothing batch.
type AppendRequest struct {
	Transactions []TransactionRequest `json:"transactions"`
}

// AppendResponse returns the accepted batch with generated ids.
type AppendResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	History      int              `json:"history"`
}

// =============================================================================
// BALANCES AND RULES
// =============================================================================

// BalanceDTO is one account's totals.
type BalanceDTO struct {
	Account string `json:"account"`
	Credit  string `json:"credit"`
	Debit   string `json:"debit"`
	Balance string `json:"balance"`
}

// BalancesResponse lists every chart account plus their sum.
type BalancesResponse struct {
	Accounts      []BalanceDTO `json:"accounts"`
	SystemBalance string       `json:"system_balance"`
}

// RuleDTO is a rule with its metric value over the current history.
type RuleDTO struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
	Holds bool   `json:"holds"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// RejectedBatchDTO records a batch a scenario expected to be refused.
type RejectedBatchDTO struct {
	Description   string   `json:"description"`
	ViolatedRules []string `json:"violated_rules"`
}

// LoadScenarioResponse summarizes what a scenario created.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO        `json:"scenario"`
	Books    []BookDTO          `json:"books"`
	Rejected []RejectedBatchDTO `json:"rejected,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Details       string   `json:"details,omitempty"`
	ViolatedRules []string `json:"violated_rules,omitempty"`
}
