package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/metrics"
)

// Reconciler turns a parsed gateway callback into a ledger entry. It never
// owns order state; the state machine claim happens before RecordPayment.
type Reconciler interface {
	ResolveOrderID(cb *GatewayCallback) (uuid.UUID, error)
	RecordPayment(ctx context.Context, order *models.Order, cb *GatewayCallback) error
}

// ServiceParams carries the reconciler dependencies.
type ServiceParams struct {
	Repo    Repository
	Log     *logger.Logger
	Metrics *metrics.ReconciliationMetrics
}

type service struct {
	repo    Repository
	log     *logger.Logger
	metrics *metrics.ReconciliationMetrics
}

// NewService builds the payment reconciler.
func NewService(params ServiceParams) (Reconciler, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		log:     params.Log,
		metrics: params.Metrics,
	}, nil
}

// ResolveOrderID maps the callback order reference to an order id. A
// reference that is not a well-formed id is reported the same way as an
// absent one: the caller cannot be routed to success.
func (s *service) ResolveOrderID(cb *GatewayCallback) (uuid.UUID, error) {
	if cb == nil || cb.OrderRef == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeMissingOrderRef, "callback carries no order reference")
	}
	orderID, err := uuid.Parse(cb.OrderRef)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeMissingOrderRef, err, "order reference is not a valid id").
			WithDetails(map[string]any{"order_ref": cb.OrderRef})
	}
	return orderID, nil
}

// RecordPayment appends the ledger entry for a claimed order. Callbacks
// without a transaction id skip the write entirely: there is nothing unique
// to key the row on. A duplicate insert is a replayed callback and succeeds
// via idempotence. Any other write failure degrades the ledger but never the
// order: the claim already happened and must not be rolled back.
func (s *service) RecordPayment(ctx context.Context, order *models.Order, cb *GatewayCallback) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !cb.HasTxnID() {
		s.log.Warn(ctx, "callback has no transaction id, skipping payment record")
		return nil
	}

	record := &models.PaymentRecord{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		AmountCents:  order.TotalCents,
		Currency:     order.Currency,
		Status:       enums.PaymentStatusCompleted,
		Method:       enums.PaymentMethodGateway,
		GatewayTxnID: cb.TxnID,
		Metadata:     cb.Metadata,
	}

	outcome, err := s.repo.InsertIfAbsent(ctx, record)
	if err != nil {
		s.metrics.IncLedgerFailure()
		s.log.Error(ctx, "payment record write failed, order continues", err)
		return pkgerrors.Wrap(pkgerrors.CodeLedgerDegraded, err, "persist payment record").
			WithDetails(map[string]any{
				"order_id":       order.ID.String(),
				"gateway_txn_id": *cb.TxnID,
			})
	}
	if outcome == OutcomeAlreadyExists {
		s.log.Info(ctx, "payment record already exists, replayed callback")
		return nil
	}

	s.log.Info(ctx, "payment record created")
	return nil
}
