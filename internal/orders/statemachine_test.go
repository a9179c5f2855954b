package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
)

type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.Order

	casCalls int
	casDeny  bool
	casErr   error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) FindByIDForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok || order.BuyerID != buyerID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order.Items, nil
}

func (f *fakeOrderRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected []enums.OrderStatus, next enums.OrderStatus) (bool, error) {
	f.casCalls++
	if f.casErr != nil {
		return false, f.casErr
	}
	if f.casDeny {
		return false, nil
	}
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	for _, status := range expected {
		if order.Status == status {
			order.Status = next
			return true, nil
		}
	}
	return false, nil
}

func seedFakeOrder(repo *fakeOrderRepo, buyerID uuid.UUID, status enums.OrderStatus) *models.Order {
	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Status:  status,
	}
	repo.orders[order.ID] = order
	return order
}

func TestClaimForProcessingWinsFromInitiated(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	buyerID := uuid.New()
	order := seedFakeOrder(repo, buyerID, enums.OrderStatusInitiated)

	result, got, err := sm.ClaimForProcessing(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, ClaimResultClaimed, result)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)
	assert.Equal(t, enums.OrderStatusProcessing, repo.orders[order.ID].Status)
}

func TestClaimForProcessingWinsFromDraft(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	buyerID := uuid.New()
	order := seedFakeOrder(repo, buyerID, enums.OrderStatusDraft)

	result, _, err := sm.ClaimForProcessing(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, ClaimResultClaimed, result)
}

func TestClaimForProcessingAlreadyClaimed(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusConfirmed,
		enums.OrderStatusDelivered,
	} {
		t.Run(status.String(), func(t *testing.T) {
			repo := newFakeOrderRepo()
			sm, err := NewStateMachine(repo)
			require.NoError(t, err)

			buyerID := uuid.New()
			order := seedFakeOrder(repo, buyerID, status)

			result, got, err := sm.ClaimForProcessing(context.Background(), order.ID, buyerID)
			require.NoError(t, err)
			assert.Equal(t, ClaimResultAlreadyClaimed, result)
			require.NotNil(t, got)
			assert.Equal(t, status, got.Status)
			assert.Zero(t, repo.casCalls, "no swap attempted for already-claimed orders")
		})
	}
}

func TestClaimForProcessingLosesRace(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	buyerID := uuid.New()
	order := seedFakeOrder(repo, buyerID, enums.OrderStatusInitiated)

	// The read sees a claimable status but the swap loses to a concurrent caller.
	repo.casDeny = true

	result, _, err := sm.ClaimForProcessing(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, ClaimResultAlreadyClaimed, result)
}

func TestClaimForProcessingTerminalOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	buyerID := uuid.New()
	order := seedFakeOrder(repo, buyerID, enums.OrderStatusCancelled)

	_, _, err = sm.ClaimForProcessing(context.Background(), order.ID, buyerID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestClaimForProcessingWrongBuyer(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	order := seedFakeOrder(repo, uuid.New(), enums.OrderStatusInitiated)

	_, _, err = sm.ClaimForProcessing(context.Background(), order.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestFinalizeConfirm(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	order := seedFakeOrder(repo, uuid.New(), enums.OrderStatusProcessing)

	require.NoError(t, sm.Finalize(context.Background(), order.ID, enums.OrderStatusConfirmed))
	assert.Equal(t, enums.OrderStatusConfirmed, repo.orders[order.ID].Status)
}

func TestFinalizeIllegalTransitionLeavesStateIntact(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	order := seedFakeOrder(repo, uuid.New(), enums.OrderStatusInitiated)

	err = sm.Finalize(context.Background(), order.ID, enums.OrderStatusConfirmed)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusInitiated, repo.orders[order.ID].Status)
	assert.Zero(t, repo.casCalls)
}

func TestFinalizeIdempotentOnSameStatus(t *testing.T) {
	repo := newFakeOrderRepo()
	sm, err := NewStateMachine(repo)
	require.NoError(t, err)

	order := seedFakeOrder(repo, uuid.New(), enums.OrderStatusConfirmed)

	require.NoError(t, sm.Finalize(context.Background(), order.ID, enums.OrderStatusConfirmed))
	assert.Zero(t, repo.casCalls)
}

func TestCanTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusDraft, enums.OrderStatusInitiated))
	assert.True(t, CanTransition(enums.OrderStatusInitiated, enums.OrderStatusProcessing))
	assert.True(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusConfirmed))
	assert.True(t, CanTransition(enums.OrderStatusConfirmed, enums.OrderStatusDelivered))
	assert.True(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusFailed))

	assert.False(t, CanTransition(enums.OrderStatusDelivered, enums.OrderStatusProcessing))
	assert.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusConfirmed))
	assert.False(t, CanTransition(enums.OrderStatusConfirmed, enums.OrderStatusProcessing))
	assert.False(t, CanTransition(enums.OrderStatusInitiated, enums.OrderStatusDelivered))
}
