package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  farm_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

func seedCartItem(t *testing.T, db *gorm.DB, buyerID, farmID uuid.UUID, name string) *models.CartItem {
	t.Helper()

	item := &models.CartItem{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		ProductID:      uuid.New(),
		FarmID:         farmID,
		Name:           name,
		Qty:            1,
		UnitPriceCents: 4500,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRemoveFarmEntries(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	farmA := uuid.New()
	farmB := uuid.New()
	farmC := uuid.New()
	seedCartItem(t, db, buyerID, farmA, "Eggs")
	seedCartItem(t, db, buyerID, farmB, "Honey")
	seedCartItem(t, db, buyerID, farmC, "Cheese")

	require.NoError(t, repo.RemoveFarmEntries(ctx, buyerID, []uuid.UUID{farmA, farmB}))

	remaining, err := repo.FindByBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, farmC, remaining[0].FarmID)
}

func TestRemoveFarmEntriesScopedToBuyer(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmA := uuid.New()
	buyer := uuid.New()
	otherBuyer := uuid.New()
	seedCartItem(t, db, buyer, farmA, "Eggs")
	seedCartItem(t, db, otherBuyer, farmA, "Eggs")

	require.NoError(t, repo.RemoveFarmEntries(ctx, buyer, []uuid.UUID{farmA}))

	mine, err := repo.FindByBuyer(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := repo.FindByBuyer(ctx, otherBuyer)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestClearAll(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	seedCartItem(t, db, buyerID, uuid.New(), "Eggs")
	seedCartItem(t, db, buyerID, uuid.New(), "Honey")

	require.NoError(t, repo.ClearAll(ctx, buyerID))

	remaining, err := repo.FindByBuyer(ctx, buyerID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRemoveFarmEntriesNoFarms(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	seedCartItem(t, db, buyerID, uuid.New(), "Eggs")

	require.NoError(t, repo.RemoveFarmEntries(context.Background(), buyerID, nil))

	remaining, err := repo.FindByBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
