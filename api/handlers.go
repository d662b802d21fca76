/*
handlers.go - HTTP API handlers for the invariant ledger

PURPOSE:
  Exposes books via REST API. Handles HTTP request/response, JSON
  serialization, and delegates verification to the book and ledger
  packages.

ENDPOINTS:
  Books:
    GET    /api/books                        List all books
    POST   /api/books                        Create book from factory JSON
    GET    /api/books/{id}                   Get book summary

  Transactions:
    GET    /api/books/{id}/transactions      Full history in append order
    POST   /api/books/{id}/transactions      Append an all-or-nothing batch

  Inspection:
    GET    /api/books/{id}/balances          Per-account credit/debit/balance
    GET    /api/books/{id}/rules             Rules with metric value and verdict

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    GET    /api/scenarios/current            The scenario loaded last, or null
    POST   /api/scenarios/load               Reset and load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (book definitions and transactions)
  - Factory: JSON to book.Definition conversion
  - Books: Open books, each holding its verified current System

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, DomainError (bad amount, unknown account)
  - 404: Book not found
  - 409: Duplicate idempotency key or transaction id, book already exists
  - 422: Batch rejected; violated_rules lists every broken rule code
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/factory"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.BookFactory
	Books   *book.Registry

	logger *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Factory: factory.NewBookFactory(),
		Books:   book.NewRegistry(),
		logger:  logger,
	}
}

// LoadBooks opens every stored book, replaying and re-verifying its full
// history. Books that fail to open are logged and skipped; the returned
// error joins every failure.
func (h *Handler) LoadBooks(ctx context.Context) error {
	records, err := h.Store.ListBooks(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, rec := range records {
		if err := h.openRecord(ctx, rec); err != nil {
			h.logger.Error("failed to open book", "book", rec.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) openRecord(ctx context.Context, rec sqlite.BookRecord) error {
	def, err := h.Factory.ParseBook(rec.ConfigJSON)
	if err != nil {
		return err
	}
	b, err := book.Open(ctx, *def, h.Store, h.logger)
	if err != nil {
		return err
	}
	return h.Books.Add(b)
}

// createBook parses, opens and persists a new book definition.
func (h *Handler) createBook(ctx context.Context, configJSON string) (*book.Book, error) {
	def, err := h.Factory.ParseBook(configJSON)
	if err != nil {
		return nil, &ledger.DomainError{Field: "book", Reason: err.Error()}
	}
	if _, err := h.Books.Get(def.ID); err == nil {
		return nil, book.ErrBookExists
	}

	b, err := book.Open(ctx, *def, h.Store, h.logger)
	if err != nil {
		return nil, err
	}
	rec := sqlite.BookRecord{ID: string(def.ID), Name: def.Name, ConfigJSON: configJSON}
	if err := h.Store.SaveBook(ctx, rec); err != nil {
		return nil, err
	}
	if err := h.Books.Add(b); err != nil {
		return nil, err
	}

	h.logger.Info("book created", "book", def.ID, "accounts", def.Chart.Len(), "rules", len(def.Rules))
	return b, nil
}

// =============================================================================
// BOOK HANDLERS
// =============================================================================

// ListBooks returns all books in creation order.
// GET /api/books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListBooks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list books", err)
		return
	}

	dtos := make([]BookDTO, 0, len(records))
	for _, rec := range records {
		b, err := h.Books.Get(book.BookID(rec.ID))
		if err != nil {
			// Stored but failed to open; LoadBooks already logged it.
			continue
		}
		dtos = append(dtos, toBookDTO(b, rec.CreatedAt))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateBook creates a book from a factory JSON definition.
// POST /api/books
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.createBook(r.Context(), string(body))
	if err != nil {
		writeBookError(w, "Failed to create book", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookDTO(b, time.Now().UTC()))
}

// GetBook returns a single book.
// GET /api/books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBook(w, r)
	if !ok {
		return
	}

	var createdAt time.Time
	if rec, err := h.Store.GetBook(r.Context(), string(b.ID())); err == nil {
		createdAt = rec.CreatedAt
	}

	writeJSON(w, http.StatusOK, toBookDTO(b, createdAt))
}

func (h *Handler) lookupBook(w http.ResponseWriter, r *http.Request) (*book.Book, bool) {
	id := chi.URLParam(r, "id")
	b, err := h.Books.Get(book.BookID(id))
	if err != nil {
		writeBookError(w, fmt.Sprintf("Book %s not found", id), err)
		return nil, false
	}
	return b, true
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns the full history in append order.
// GET /api/books/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBook(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(b.System().Transactions()))
}

// AppendTransactions verifies and appends a batch. Either every
// transaction is recorded or none is.
// POST /api/books/{id}/transactions
func (h *Handler) AppendTransactions(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBook(w, r)
	if !ok {
		return
	}

	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Transactions) == 0 {
		writeError(w, http.StatusBadRequest, "At least one transaction is required", nil)
		return
	}

	txs, err := buildTransactions(b.Definition().Chart, req.Transactions)
	if err != nil {
		writeBookError(w, "Invalid transaction", err)
		return
	}

	sys, err := b.Append(r.Context(), txs...)
	if err != nil {
		writeBookError(w, "Batch rejected", err)
		return
	}

	writeJSON(w, http.StatusCreated, AppendResponse{
		Transactions: toTransactionDTOs(txs),
		History:      sys.Len(),
	})
}

func buildTransactions(chart ledger.Chart, reqs []TransactionRequest) ([]ledger.Transaction, error) {
	txs := make([]ledger.Transaction, len(reqs))
	for i, req := range reqs {
		if req.Value == nil {
			return nil, &ledger.DomainError{Field: "amount", Reason: "value is required"}
		}
		credit, err := chart.Lookup(req.Credit)
		if err != nil {
			return nil, err
		}
		debit, err := chart.Lookup(req.Debit)
		if err != nil {
			return nil, err
		}
		txs[i] = ledger.NewTransaction(*req.Value, credit, debit).
			WithTag(req.Tag).
			WithIdempotencyKey(req.IdempotencyKey)
	}
	return txs, nil
}

// =============================================================================
// INSPECTION HANDLERS
// =============================================================================

// GetBalances returns credit, debit and balance of every chart account.
// GET /api/books/{id}/balances
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBook(w, r)
	if !ok {
		return
	}

	balances := b.Balances()
	resp := BalancesResponse{
		Accounts:      make([]BalanceDTO, len(balances)),
		SystemBalance: b.SystemBalance().String(),
	}
	for i, ab := range balances {
		resp.Accounts[i] = BalanceDTO{
			Account: ab.Account.AccountID(),
			Credit:  ab.Credit.String(),
			Debit:   ab.Debit.String(),
			Balance: ab.Balance.String(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRules evaluates every rule over the current history.
// GET /api/books/{id}/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBook(w, r)
	if !ok {
		return
	}

	txs := b.System().Transactions()
	rules := b.Definition().Rules
	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = RuleDTO{
			Code:  rule.Code(),
			Value: rule.Measure(txs),
			Holds: rule.Evaluate(txs),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeBookError maps book and ledger errors to status codes.
func writeBookError(w http.ResponseWriter, message string, err error) {
	var violation *ledger.RuleViolationError
	switch {
	case errors.As(err, &violation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:         message,
			Details:       err.Error(),
			ViolatedRules: violation.Codes(),
		})
	case book.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, book.ErrDuplicateIdempotencyKey),
		errors.Is(err, book.ErrDuplicateTransactionID),
		errors.Is(err, book.ErrBookExists):
		writeError(w, http.StatusConflict, message, err)
	case book.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
