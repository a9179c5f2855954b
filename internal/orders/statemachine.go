package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
)

// ClaimResult reports the outcome of attempting to claim an order.
type ClaimResult string

const (
	// ClaimResultClaimed means this caller won the claim and owns processing.
	ClaimResultClaimed ClaimResult = "claimed"
	// ClaimResultAlreadyClaimed means another caller owns (or finished)
	// processing; the caller must take the idempotent short-circuit path.
	ClaimResultAlreadyClaimed ClaimResult = "already_claimed"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusDraft:      {enums.OrderStatusInitiated, enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusInitiated:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusProcessing: {enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusConfirmed:  {enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusFailed:     {},
}

// claimable are the statuses from which an order may move into processing.
var claimable = []enums.OrderStatus{
	enums.OrderStatusDraft,
	enums.OrderStatusInitiated,
}

// CanTransition checks if a transition from `from` to `to` is valid.
func CanTransition(from, to enums.OrderStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateMachine owns order status transitions. The compare-and-swap claim is
// the only serialization point in the reconciliation flow.
type StateMachine interface {
	ClaimForProcessing(ctx context.Context, orderID, buyerID uuid.UUID) (ClaimResult, *models.Order, error)
	Finalize(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) error
}

type stateMachine struct {
	repo Repository
}

// NewStateMachine builds the order state machine over the given repository.
func NewStateMachine(repo Repository) (StateMachine, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &stateMachine{repo: repo}, nil
}

// ClaimForProcessing attempts to take exclusive ownership of a pending order.
// Orders already at processing or beyond report AlreadyClaimed so callers can
// still re-derive a summary for display. Losing the swap race also reports
// AlreadyClaimed: the winner owns payment recording.
func (m *stateMachine) ClaimForProcessing(ctx context.Context, orderID, buyerID uuid.UUID) (ClaimResult, *models.Order, error) {
	if orderID == uuid.Nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if buyerID == uuid.Nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	order, err := m.repo.FindByIDForBuyer(ctx, orderID, buyerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	switch order.Status {
	case enums.OrderStatusProcessing, enums.OrderStatusConfirmed, enums.OrderStatusDelivered:
		return ClaimResultAlreadyClaimed, order, nil
	case enums.OrderStatusCancelled, enums.OrderStatusFailed:
		return "", order, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be claimed", order.Status))
	}

	won, err := m.repo.CompareAndSwapStatus(ctx, orderID, claimable, enums.OrderStatusProcessing)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
	}
	if !won {
		// Lost the race; the concurrent caller owns processing.
		return ClaimResultAlreadyClaimed, order, nil
	}

	order.Status = enums.OrderStatusProcessing
	return ClaimResultClaimed, order, nil
}

// Finalize moves a claimed order to its terminal-or-confirmed status. Illegal
// transitions fail without touching stored state.
func (m *stateMachine) Finalize(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", target))
	}

	order, err := m.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status == target {
		return nil
	}
	if !CanTransition(order.Status, target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition from %s to %s", order.Status, target))
	}

	won, err := m.repo.CompareAndSwapStatus(ctx, orderID, []enums.OrderStatus{order.Status}, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize order")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	return nil
}
