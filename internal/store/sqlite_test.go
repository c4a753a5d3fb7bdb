package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/ledger"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteLedgerBackendRoundTrip(t *testing.T) {
	db := openTestSQLite(t)
	backend, err := NewSQLiteLedgerBackend(db)
	require.NoError(t, err)

	txID := "tx-1"
	err = backend.SaveSpend(context.Background(), ledger.SpendRecord{
		ID: "spend-1", Amount: 12.5, Timestamp: 5000, Approved: true, TransactionID: &txID,
	})
	require.NoError(t, err)

	recs, err := backend.LoadSpends(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "spend-1", recs[0].ID)
	assert.Equal(t, 12.5, recs[0].Amount)
	require.NotNil(t, recs[0].TransactionID)
	assert.Equal(t, "tx-1", *recs[0].TransactionID)
}

func TestSQLiteLedgerBackendSinceFilter(t *testing.T) {
	db := openTestSQLite(t)
	backend, err := NewSQLiteLedgerBackend(db)
	require.NoError(t, err)

	require.NoError(t, backend.SaveSpend(context.Background(), ledger.SpendRecord{ID: "old", Amount: 1, Timestamp: 100, Approved: true}))
	require.NoError(t, backend.SaveSpend(context.Background(), ledger.SpendRecord{ID: "new", Amount: 2, Timestamp: 9000, Approved: true}))

	recs, err := backend.LoadSpends(context.Background(), 5000)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].ID)
}
