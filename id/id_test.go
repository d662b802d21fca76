package id_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/invariant-ledger/id"
)

func TestNewTransactionID(t *testing.T) {
	a := id.NewTransactionID()
	b := id.NewTransactionID()

	assert.Equal(t, id.PrefixTransaction, a.Prefix())
	assert.True(t, strings.HasPrefix(a.String(), "txn_"))
	assert.NotEqual(t, a.String(), b.String())
}

func TestParseTransactionID_RoundTrip(t *testing.T) {
	original := id.NewTransactionID()

	parsed, err := id.ParseTransactionID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
}

func TestParse_Rejects(t *testing.T) {
	_, err := id.Parse("")
	assert.Error(t, err)

	_, err = id.Parse("not a type id")
	assert.Error(t, err)

	other := id.New("book")
	_, err = id.ParseTransactionID(other.String())
	assert.Error(t, err, "wrong prefix")
}
