/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built purchase flows that populate the database with
	realistic data for demos. Each scenario creates the purchase book and
	appends the batches of one payment flow. Some scenarios also try
	batches that must be refused, and report which rules refused them.

AVAILABLE SCENARIOS:

	authorize-capture:   Authorize 200, settle to the bank
	cancelled:           Authorize 80, cancel back to the customer
	refund:              Settle 200, refund 50 through the refunded account
	rejected-overdraft:  Settling more than was reserved is refused
	split-tender:        250 on a credit card and 50 on a gift card, each PSP
	                     verified on its own before the merged history is stored

HOW SCENARIOS WORK:
 1. Reset database and open books
 2. Create the purchase book from payments.PurchaseBookJSON
 3. Append the flow's batches
 4. Attempt the refused batches, recording violated rules

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "refund"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Book and transaction handlers
  - payments/presets.go: The purchase book definition
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/payments"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// PurchaseBookID is the book every scenario creates.
const PurchaseBookID = "purchase"

type scenarioLoader func(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error)

type scenario struct {
	ScenarioDTO
	load scenarioLoader
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "authorize-capture",
			Name:        "Authorize and Capture",
			Description: "Authorize 200 on a credit card and settle it to the bank",
		},
		load: loadAuthorizeCapture,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "cancelled",
			Name:        "Cancelled Authorization",
			Description: "Authorize 80 and release it back to the customer",
		},
		load: loadCancelled,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "refund",
			Name:        "Partial Refund",
			Description: "Settle 200 and refund 50 via the refunded pass-through account",
		},
		load: loadRefund,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rejected-overdraft",
			Name:        "Rejected Overdraft",
			Description: "Settling 150 against a 100 authorization is refused, as is paying the bank directly",
		},
		load: loadRejectedOverdraft,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "split-tender",
			Name:        "Split Tender",
			Description: "300 paid as 250 by credit card and 50 by gift card, verified per PSP",
		},
		load: loadSplitTender,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets all data and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	resp, err := h.loadScenario(r.Context(), s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) (*LoadScenarioResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset database: %w", err)
	}
	h.Books.Reset()
	h.currentScenario = ""

	b, err := h.createBook(ctx, payments.PurchaseBookJSON(PurchaseBookID, "Purchase"))
	if err != nil {
		return nil, err
	}

	rejected, err := s.load(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}

	h.currentScenario = s.ID
	h.logger.Info("scenario loaded", "scenario", s.ID, "rejected", len(rejected))

	resp := &LoadScenarioResponse{Scenario: s.ScenarioDTO, Rejected: rejected}
	for _, b := range h.Books.List() {
		resp.Books = append(resp.Books, toBookDTO(b, time.Time{}))
	}
	return resp, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadAuthorizeCapture(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error) {
	return nil, appendFlow(ctx, b,
		[]step{{payments.CreditCard, 200, payments.Customer, payments.Reserved}},
		[]step{{payments.CreditCard, 200, payments.Reserved, payments.Bank}},
	)
}

func loadCancelled(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error) {
	return nil, appendFlow(ctx, b,
		[]step{{payments.CreditCard, 80, payments.Customer, payments.Reserved}},
		[]step{{payments.CreditCard, 80, payments.Reserved, payments.Customer}},
	)
}

func loadRefund(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error) {
	return nil, appendFlow(ctx, b,
		[]step{{payments.CreditCard, 200, payments.Customer, payments.Reserved}},
		[]step{{payments.CreditCard, 200, payments.Reserved, payments.Bank}},
		// Both legs in one batch: refunded nets to zero after the batch.
		[]step{
			{payments.CreditCard, 50, payments.Bank, payments.Refunded},
			{payments.CreditCard, 50, payments.Refunded, payments.Customer},
		},
	)
}

func loadRejectedOverdraft(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error) {
	err := appendFlow(ctx, b,
		[]step{{payments.CreditCard, 100, payments.Customer, payments.Reserved}},
	)
	if err != nil {
		return nil, err
	}

	var rejected []RejectedBatchDTO
	attempts := []struct {
		description string
		steps       []step
	}{
		{"settle 150 against a 100 authorization",
			[]step{{payments.CreditCard, 150, payments.Reserved, payments.Bank}}},
		{"pay the bank directly",
			[]step{{payments.CreditCard, 100, payments.Customer, payments.Bank}}},
	}
	for _, attempt := range attempts {
		r, err := expectRejected(ctx, b, attempt.description, attempt.steps)
		if err != nil {
			return nil, err
		}
		rejected = append(rejected, r)
	}
	return rejected, nil
}

func loadSplitTender(ctx context.Context, b *book.Book) ([]RejectedBatchDTO, error) {
	steps := []step{
		{payments.CreditCard, 250, payments.Customer, payments.Reserved},
		{payments.GiftCard, 50, payments.Customer, payments.Reserved},
		{payments.CreditCard, 250, payments.Reserved, payments.Bank},
		{payments.GiftCard, 50, payments.Reserved, payments.Bank},
	}
	txs, err := buildSteps(b, steps)
	if err != nil {
		return nil, err
	}

	rules := b.Definition().Rules
	subsystems, err := payments.BuildSubsystems(payments.GroupByPSP(txs), rules...)
	if err != nil {
		return nil, err
	}
	merged, err := payments.Merge(subsystems, rules...)
	if err != nil {
		return nil, err
	}

	_, err = b.Append(ctx, merged.Transactions()...)
	return nil, err
}

// =============================================================================
// HELPERS
// =============================================================================

// step is one transfer of a scenario.
type step struct {
	psp    payments.PSP
	value  int64
	credit payments.Account
	debit  payments.Account
}

// buildSteps resolves accounts through the book's chart so transactions
// carry the chart's own account values.
func buildSteps(b *book.Book, steps []step) ([]ledger.Transaction, error) {
	chart := b.Definition().Chart
	txs := make([]ledger.Transaction, len(steps))
	for i, s := range steps {
		credit, err := chart.Lookup(s.credit.AccountID())
		if err != nil {
			return nil, err
		}
		debit, err := chart.Lookup(s.debit.AccountID())
		if err != nil {
			return nil, err
		}
		value, err := ledger.NewAmount(s.value)
		if err != nil {
			return nil, err
		}
		txs[i] = ledger.NewTransaction(value, credit, debit).WithTag(string(s.psp))
	}
	return txs, nil
}

// appendFlow appends each batch in order.
func appendFlow(ctx context.Context, b *book.Book, batches ...[]step) error {
	for _, batch := range batches {
		txs, err := buildSteps(b, batch)
		if err != nil {
			return err
		}
		if _, err := b.Append(ctx, txs...); err != nil {
			return err
		}
	}
	return nil
}

// expectRejected appends a batch that must violate at least one rule.
func expectRejected(ctx context.Context, b *book.Book, description string, steps []step) (RejectedBatchDTO, error) {
	txs, err := buildSteps(b, steps)
	if err != nil {
		return RejectedBatchDTO{}, err
	}

	_, err = b.Append(ctx, txs...)
	var violation *ledger.RuleViolationError
	switch {
	case err == nil:
		return RejectedBatchDTO{}, fmt.Errorf("%s: batch was accepted", description)
	case errors.As(err, &violation):
		return RejectedBatchDTO{Description: description, ViolatedRules: violation.Codes()}, nil
	default:
		return RejectedBatchDTO{}, err
	}
}
