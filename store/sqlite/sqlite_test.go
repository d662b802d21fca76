package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/invariant-ledger/book"
	"github.com/warp/invariant-ledger/ledger"
	"github.com/warp/invariant-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var chart = ledger.MustChart(
	ledger.AccountName("customer"),
	ledger.AccountName("reserved"),
	ledger.AccountName("bank"),
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// summarize flattens transactions for comparison; decimal internals differ
// between parsed and constructed values of the same number.
func summarize(txs []ledger.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = strings.Join([]string{
			tx.ID, tx.Value.String(), tx.Credit.AccountID(), tx.Debit.AccountID(), tx.Tag, tx.IdempotencyKey,
		}, "|")
	}
	return out
}

func tx(value int64, credit, debit string) ledger.Transaction {
	return ledger.NewTransaction(ledger.MustAmount(value), ledger.AccountName(credit), ledger.AccountName(debit))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_AppendAndLoadKeepsOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []ledger.Transaction{tx(300, "customer", "reserved"), tx(100, "reserved", "bank").WithTag("credit_card")}
	second := []ledger.Transaction{tx(5, "reserved", "customer").WithIdempotencyKey("cancel-1")}

	require.NoError(t, store.AppendBatch(ctx, "purchase", first))
	require.NoError(t, store.AppendBatch(ctx, "purchase", second))

	loaded, err := store.Load(ctx, "purchase", chart)
	require.NoError(t, err)

	assert.Equal(t, summarize(append(first, second...)), summarize(loaded))
}

func TestStore_BooksAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendBatch(ctx, "a", []ledger.Transaction{tx(1, "customer", "reserved")}))
	require.NoError(t, store.AppendBatch(ctx, "b", []ledger.Transaction{tx(2, "customer", "bank"), tx(3, "customer", "bank")}))

	count, err := store.CountTransactions(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := store.Load(ctx, "b", chart)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	empty, err := store.Load(ctx, "missing", chart)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_DuplicateIdempotencyKeyRollsBackBatch(t *testing.T) {
	// GIVEN: key "k1" already stored
	// WHEN: a batch of two where the second reuses "k1"
	// THEN: ErrDuplicateIdempotencyKey and the first of the batch is not stored

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendBatch(ctx, "purchase", []ledger.Transaction{
		tx(1, "customer", "reserved").WithIdempotencyKey("k1"),
	}))

	err := store.AppendBatch(ctx, "purchase", []ledger.Transaction{
		tx(2, "customer", "reserved"),
		tx(3, "customer", "reserved").WithIdempotencyKey("k1"),
	})
	assert.ErrorIs(t, err, book.ErrDuplicateIdempotencyKey)

	count, err := store.CountTransactions(ctx, "purchase")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	exists, err := store.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_LoadRejectsAccountOutsideChart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendBatch(ctx, "purchase", []ledger.Transaction{tx(1, "customer", "vault")}))

	_, err := store.Load(ctx, "purchase", chart)
	assert.ErrorIs(t, err, ledger.ErrDomain)
}

func TestStore_BackedBookSurvivesReopen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	def := book.Definition{ID: "purchase", Chart: chart}

	b, err := book.Open(ctx, def, store, nil)
	require.NoError(t, err)
	_, err = b.Append(ctx, tx(10, "customer", "reserved"), tx(4, "reserved", "bank"))
	require.NoError(t, err)

	reopened, err := book.Open(ctx, def, store, nil)
	require.NoError(t, err)
	assert.Equal(t, summarize(b.System().Transactions()), summarize(reopened.System().Transactions()))
}

// =============================================================================
// BOOK DEFINITIONS
// =============================================================================

func TestStore_BookRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := sqlite.BookRecord{ID: "purchase", Name: "Purchase", ConfigJSON: `{"id":"purchase"}`}
	require.NoError(t, store.SaveBook(ctx, rec))
	assert.ErrorIs(t, store.SaveBook(ctx, rec), book.ErrBookExists)

	got, err := store.GetBook(ctx, "purchase")
	require.NoError(t, err)
	assert.Equal(t, "Purchase", got.Name)
	assert.Equal(t, rec.ConfigJSON, got.ConfigJSON)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = store.GetBook(ctx, "missing")
	assert.ErrorIs(t, err, book.ErrBookNotFound)

	list, err := store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Reset(ctx))
	list, err = store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// =============================================================================
// TRANSACTION IDS
// =============================================================================

func TestStore_BackedBookAssignsMissingIDs(t *testing.T) {
	// GIVEN: A SQLite-backed book
	store := newTestStore(t)
	ctx := context.Background()
	def := book.Definition{ID: "purchase", Chart: chart}
	b, err := book.Open(ctx, def, store, nil)
	require.NoError(t, err)

	// WHEN: Transactions built as struct literals carry no id
	customer, _ := chart.Lookup("customer")
	reserved, _ := chart.Lookup("reserved")
	literal := func(v int64) ledger.Transaction {
		return ledger.Transaction{Value: ledger.MustAmount(v), Credit: customer, Debit: reserved}
	}
	sys, err := b.Append(ctx, literal(1), literal(2))

	// THEN: Both get distinct ids, in memory and in storage alike
	require.NoError(t, err)
	txs := sys.Transactions()
	require.Len(t, txs, 2)
	assert.True(t, strings.HasPrefix(txs[0].ID, "txn_"))
	assert.NotEqual(t, txs[0].ID, txs[1].ID)

	loaded, err := store.Load(ctx, "purchase", chart)
	require.NoError(t, err)
	assert.Equal(t, summarize(txs), summarize(loaded))
}

func TestStore_BackedBookRejectsReusedID(t *testing.T) {
	// GIVEN: A transaction already accepted by a SQLite-backed book
	store := newTestStore(t)
	ctx := context.Background()
	b, err := book.Open(ctx, book.Definition{ID: "purchase", Chart: chart}, store, nil)
	require.NoError(t, err)
	accepted := tx(5, "customer", "reserved")
	_, err = b.Append(ctx, accepted)
	require.NoError(t, err)

	// WHEN: The same transaction is appended again
	_, err = b.Append(ctx, accepted)

	// THEN: A client error, and neither memory nor storage changed
	assert.ErrorIs(t, err, book.ErrDuplicateTransactionID)
	assert.True(t, book.IsClientError(err))
	assert.Equal(t, 1, b.System().Len())
	count, err := store.CountTransactions(ctx, "purchase")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// WHEN: A batch repeats an id inside itself
	fresh := tx(1, "customer", "reserved")
	_, err = b.Append(ctx, fresh, fresh)
	assert.ErrorIs(t, err, book.ErrDuplicateTransactionID)
}

func TestStore_DuplicateIDRollsBackBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first := tx(1, "customer", "reserved")
	require.NoError(t, store.AppendBatch(ctx, "purchase", []ledger.Transaction{first}))

	err := store.AppendBatch(ctx, "purchase", []ledger.Transaction{tx(2, "customer", "reserved"), first})

	assert.ErrorIs(t, err, book.ErrDuplicateTransactionID)
	count, err := store.CountTransactions(ctx, "purchase")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_BackedBookRejectsMalformedID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	b, err := book.Open(ctx, book.Definition{ID: "purchase", Chart: chart}, store, nil)
	require.NoError(t, err)

	bad := tx(1, "customer", "reserved")
	bad.ID = "payment-42"
	_, err = b.Append(ctx, bad)

	assert.ErrorIs(t, err, ledger.ErrDomain)
	assert.Equal(t, 0, b.System().Len())
}

func TestStore_LoadRejectsMalformedStoredID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	bad := tx(1, "customer", "reserved")
	bad.ID = "payment-42"
	require.NoError(t, store.AppendBatch(ctx, "purchase", []ledger.Transaction{bad}))

	_, err := store.Load(ctx, "purchase", chart)

	assert.ErrorContains(t, err, "payment-42")
}

func TestStore_MalformedBookTimestamp(t *testing.T) {
	// GIVEN: A book row whose created_at was written by hand
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books (id, name, config_json, created_at) VALUES ('p', 'P', '{}', 'yesterday')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// WHEN
	store, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, getErr := store.GetBook(context.Background(), "p")
	_, listErr := store.ListBooks(context.Background())

	// THEN: The bad timestamp is reported, not silently zeroed
	assert.ErrorContains(t, getErr, "created_at")
	assert.ErrorContains(t, listErr, "created_at")
}
