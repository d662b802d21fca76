/*
Package sqlite provides a SQLite-backed implementation of book.Store.

PURPOSE:
  Persists verified book histories and the JSON definitions books are built
  from. Verification happens before anything reaches this package; the store
  only guarantees ordering, atomic batches and idempotency.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transactions table
  - No DELETE statements on transactions table (except Reset, dev only)
  - Insertion order is kept by an AUTOINCREMENT sequence column

KEY TABLES:
  transactions: Immutable history of every book
  books:        Book definitions (factory JSON)

CONNECTIONS:
  A single connection is used. It serializes writers (as a Book does anyway)
  and keeps ":memory:" databases alive across calls.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  b, err := book.Open(ctx, def, store, logger)

SEE ALSO:
  - book/store.go: Interface definition
  - book/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/id"
	"github.com/warp/invariant-ledger/ledger"
)

// Store implements book.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ book.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only, per book, in insertion order)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		book_id TEXT NOT NULL,
		value TEXT NOT NULL,
		credit TEXT NOT NULL,
		debit TEXT NOT NULL,
		tag TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_book_seq
		ON transactions(book_id, seq);

	-- Book definitions
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (book.Store)
// =============================================================================

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, bookID book.BookID, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, tx := range txs {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO transactions (id, book_id, value, credit, debit, tag, idempotency_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID,
			string(bookID),
			tx.Value.String(),
			tx.Credit.AccountID(),
			tx.Debit.AccountID(),
			nullString(tx.Tag),
			nullString(tx.IdempotencyKey),
			now,
		)
		if err != nil {
			// Check the key first: "transactions.id" is a prefix of
			// "transactions.idempotency_key".
			if isUniqueConstraintError(err, "transactions.idempotency_key") {
				return book.ErrDuplicateIdempotencyKey
			}
			if isUniqueConstraintError(err, "transactions.id") {
				return book.ErrDuplicateTransactionID
			}
			return fmt.Errorf("failed to append transaction: %w", err)
		}
	}

	return sqlTx.Commit()
}

// Load returns the history of a book in insertion order.
func (s *Store) Load(ctx context.Context, bookID book.BookID, chart ledger.Chart) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, value, credit, debit, tag, idempotency_key
		FROM transactions
		WHERE book_id = ?
		ORDER BY seq ASC`, string(bookID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows, chart)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func scanTransaction(rows *sql.Rows, chart ledger.Chart) (ledger.Transaction, error) {
	var (
		tx                   ledger.Transaction
		value, credit, debit string
		tag, idempotencyKey  sql.NullString
	)
	if err := rows.Scan(&tx.ID, &value, &credit, &debit, &tag, &idempotencyKey); err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := id.ParseTransactionID(tx.ID); err != nil {
		return ledger.Transaction{}, fmt.Errorf("stored transaction: %w", err)
	}

	var err error
	if tx.Value, err = ledger.ParseAmount(value); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Credit, err = chart.Lookup(credit); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Debit, err = chart.Lookup(debit); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Tag = tag.String
	tx.IdempotencyKey = idempotencyKey.String
	return tx, nil
}

// Exists checks if an idempotency key was already used.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

// CountTransactions returns the history length of a book.
func (s *Store) CountTransactions(ctx context.Context, bookID book.BookID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE book_id = ?", string(bookID),
	).Scan(&count)
	return count, err
}

// =============================================================================
// BOOK DEFINITIONS
// =============================================================================

// BookRecord is a stored book definition.
type BookRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	CreatedAt  time.Time
}

// SaveBook stores a definition. Definitions are immutable: saving an
// existing id fails with book.ErrBookExists.
func (s *Store) SaveBook(ctx context.Context, rec BookRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, name, config_json, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.ConfigJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err, "books.id") {
			return book.ErrBookExists
		}
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// GetBook retrieves a definition by id.
func (s *Store) GetBook(ctx context.Context, id string) (*BookRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, created_at FROM books WHERE id = ?", id)
	rec, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, book.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListBooks returns every definition in creation order.
func (s *Store) ListBooks(ctx context.Context) ([]BookRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, config_json, created_at FROM books ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BookRecord
	for rows.Next() {
		rec, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (BookRecord, error) {
	var (
		rec       BookRecord
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.ConfigJSON, &createdAt); err != nil {
		return BookRecord{}, err
	}
	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return BookRecord{}, fmt.Errorf("book %s: created_at: %w", rec.ID, err)
	}
	rec.CreatedAt = parsed
	return rec, nil
}

// Reset clears all data. For development/demo only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "books"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
