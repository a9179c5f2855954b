package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/types"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	paymentRecords := `
CREATE TABLE IF NOT EXISTS payment_records (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'ZAR',
  status TEXT NOT NULL DEFAULT 'completed',
  method TEXT NOT NULL DEFAULT 'gateway',
  gateway_txn_id TEXT,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	uniqueIdx := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_records_order_txn
  ON payment_records (order_id, gateway_txn_id)
  WHERE gateway_txn_id IS NOT NULL;`
	require.NoError(t, db.Exec(paymentRecords).Error)
	require.NoError(t, db.Exec(uniqueIdx).Error)
	return db
}

func newRecord(orderID, buyerID uuid.UUID, txnID string) *models.PaymentRecord {
	record := &models.PaymentRecord{
		OrderID:     orderID,
		BuyerID:     buyerID,
		AmountCents: 25500,
		Currency:    enums.CurrencyZAR,
		Status:      enums.PaymentStatusCompleted,
		Method:      enums.PaymentMethodGateway,
		Metadata:    types.JSONMap{"payment_status": "COMPLETE"},
	}
	if txnID != "" {
		record.GatewayTxnID = &txnID
	}
	return record
}

func TestInsertIfAbsent(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	buyerID := uuid.New()

	outcome, err := repo.InsertIfAbsent(ctx, newRecord(orderID, buyerID, "1089250"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	// Replayed callback: same order, same transaction id.
	outcome, err = repo.InsertIfAbsent(ctx, newRecord(orderID, buyerID, "1089250"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)

	records, err := repo.FindByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestInsertIfAbsentDistinctTxnIDs(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	buyerID := uuid.New()

	outcome, err := repo.InsertIfAbsent(ctx, newRecord(orderID, buyerID, "txn-a"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	outcome, err = repo.InsertIfAbsent(ctx, newRecord(orderID, buyerID, "txn-b"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	records, err := repo.FindByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestInsertIfAbsentSameTxnDifferentOrders(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()

	outcome, err := repo.InsertIfAbsent(ctx, newRecord(uuid.New(), buyerID, "txn-shared"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	outcome, err = repo.InsertIfAbsent(ctx, newRecord(uuid.New(), buyerID, "txn-shared"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
}
