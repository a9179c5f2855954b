package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/internal/effects"
	"github.com/veldmarket/farmcart-backend/internal/orders"
	"github.com/veldmarket/farmcart-backend/internal/payments"
	"github.com/veldmarket/farmcart-backend/internal/summary"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/metrics"
	"github.com/veldmarket/farmcart-backend/pkg/outbox"
)

// Result is what the callback surface renders from. Replayed reports that the
// order was already reconciled and this invocation only re-derived the summary.
type Result struct {
	Projection     *summary.Projection
	Replayed       bool
	ClearOutcome   cart.ClearOutcome
	LedgerDegraded bool
}

// Service drives a gateway callback through claim, ledger, cart and summary.
type Service interface {
	HandleCallback(ctx context.Context, fields map[string]string) (*Result, error)
	GetSummary(ctx context.Context, orderID, buyerID uuid.UUID) (*summary.Projection, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackGuard interface {
	CheckAndMark(ctx context.Context, orderID string) (bool, error)
	Delete(ctx context.Context, orderID string) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams carries the orchestrator dependencies.
type ServiceParams struct {
	DB           txRunner
	Orders       orders.Repository
	StateMachine orders.StateMachine
	Reconciler   payments.Reconciler
	Partitioner  cart.Partitioner
	Projector    summary.Projector
	Effects      effects.Runner
	Guard        callbackGuard
	Outbox       eventEmitter
	// CallbackWindow bounds one callback's store calls; a timeout leaves the
	// outcome unknown and the whole flow safe to retry. Zero disables it.
	CallbackWindow time.Duration
	Log            *logger.Logger
	Metrics        *metrics.ReconciliationMetrics
}

type service struct {
	db           txRunner
	orders       orders.Repository
	stateMachine orders.StateMachine
	reconciler   payments.Reconciler
	partitioner  cart.Partitioner
	projector    summary.Projector
	effects      effects.Runner
	guard        callbackGuard
	outbox       eventEmitter
	window       time.Duration
	log          *logger.Logger
	metrics      *metrics.ReconciliationMetrics
}

// NewService builds the reconciliation orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.StateMachine == nil {
		return nil, fmt.Errorf("state machine required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("payment reconciler required")
	}
	if params.Partitioner == nil {
		return nil, fmt.Errorf("cart partitioner required")
	}
	if params.Projector == nil {
		return nil, fmt.Errorf("summary projector required")
	}
	if params.Effects == nil {
		return nil, fmt.Errorf("effects runner required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:           params.DB,
		orders:       params.Orders,
		stateMachine: params.StateMachine,
		reconciler:   params.Reconciler,
		partitioner:  params.Partitioner,
		projector:    params.Projector,
		effects:      params.Effects,
		guard:        params.Guard,
		outbox:       params.Outbox,
		window:       params.CallbackWindow,
		log:          params.Log,
		metrics:      params.Metrics,
	}, nil
}

// HandleCallback runs the full reconciliation for one inbound gateway
// callback. The compare-and-swap claim is the correctness authority; the
// Redis guard only short-circuits obvious replays. Once the claim is won,
// nothing later may roll it back: ledger and cart degradations are surfaced
// but the order still confirms.
func (s *service) HandleCallback(ctx context.Context, fields map[string]string) (*Result, error) {
	if s.window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.window)
		defer cancel()
	}

	cb, err := payments.ParseCallback(fields)
	if err != nil {
		return nil, err
	}

	orderID, err := s.reconciler.ResolveOrderID(cb)
	if err != nil {
		return nil, err
	}
	ctx = s.log.WithOrderID(ctx, orderID.String())

	if replayed, ok := s.checkGuard(ctx, orderID); ok && replayed {
		return s.replay(ctx, orderID, cb)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.unmarkGuard(ctx, orderID)
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		s.unmarkGuard(ctx, orderID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	claim, order, err := s.stateMachine.ClaimForProcessing(ctx, orderID, order.BuyerID)
	if err != nil {
		s.unmarkGuard(ctx, orderID)
		s.metrics.IncClaim("rejected")
		return nil, err
	}
	if claim == orders.ClaimResultAlreadyClaimed {
		s.metrics.IncClaim("already_claimed")
		return s.replay(ctx, orderID, cb)
	}
	s.metrics.IncClaim("claimed")

	result := &Result{}

	// The claim is won; from here every failure is either degraded-but-
	// confirmed or fatal-with-retry (guard cleared so the gateway can retry).
	if err := s.reconciler.RecordPayment(ctx, order, cb); err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeLedgerDegraded) {
			s.unmarkGuard(ctx, orderID)
			return nil, err
		}
		result.LedgerDegraded = true
	}

	clearOutcome, err := s.partitioner.ClearPaidFarms(ctx, order.BuyerID, order.Items)
	if err != nil {
		// The buyer may see stale cart lines, the money is already settled.
		s.log.Error(ctx, "cart clear failed after claim", err)
	} else {
		result.ClearOutcome = clearOutcome
	}

	if err := s.stateMachine.Finalize(ctx, orderID, enums.OrderStatusConfirmed); err != nil {
		s.unmarkGuard(ctx, orderID)
		return nil, err
	}
	order.Status = enums.OrderStatusConfirmed
	s.emitConfirmed(ctx, order, cb)

	projection, err := s.projector.Project(ctx, order, summary.Input{
		GatewayGrossCents: cb.GrossCents,
		PaymentConfirmed:  cb.HasTxnID(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "project order summary")
	}
	result.Projection = projection

	groups := s.partitioner.GroupByFarm(order.Items)
	s.effects.RunPostConfirmation(ctx, order, groups)

	s.log.Info(ctx, "order reconciled")
	return result, nil
}

// GetSummary re-derives the confirmation screen for an order the buyer owns.
func (s *service) GetSummary(ctx context.Context, orderID, buyerID uuid.UUID) (*summary.Projection, error) {
	order, err := s.orders.FindByIDForBuyer(ctx, orderID, buyerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return s.projector.Project(ctx, order, summary.Input{
		PaymentConfirmed: len(order.PaymentRecords) > 0,
	})
}

// replay serves a duplicate callback: no writes, just a fresh summary.
func (s *service) replay(ctx context.Context, orderID uuid.UUID, cb *payments.GatewayCallback) (*Result, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	projection, err := s.projector.Project(ctx, order, summary.Input{
		GatewayGrossCents: cb.GrossCents,
		PaymentConfirmed:  cb.HasTxnID() || len(order.PaymentRecords) > 0,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "project order summary")
	}
	s.log.Info(ctx, "replayed callback served from existing order state")
	return &Result{Projection: projection, Replayed: true}, nil
}

// checkGuard consults the advisory replay marker. Guard failures are logged
// and ignored; correctness falls back to the claim.
func (s *service) checkGuard(ctx context.Context, orderID uuid.UUID) (replayed, ok bool) {
	if s.guard == nil {
		return false, false
	}
	already, err := s.guard.CheckAndMark(ctx, orderID.String())
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("idempotency guard unavailable: %v", err))
		return false, false
	}
	return already, true
}

func (s *service) unmarkGuard(ctx context.Context, orderID uuid.UUID) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, orderID.String()); err != nil {
		s.log.Warn(ctx, fmt.Sprintf("clear idempotency guard: %v", err))
	}
}

// emitConfirmed queues the order_confirmed event for downstream consumers.
// Emission is post-swap and best-effort; the order row is the source of truth.
func (s *service) emitConfirmed(ctx context.Context, order *models.Order, cb *payments.GatewayCallback) {
	if s.outbox == nil || s.db == nil {
		return
	}
	payload := map[string]any{
		"orderId":     order.ID.String(),
		"totalCents":  order.TotalCents,
		"currency":    order.Currency,
		"txnRecorded": cb.HasTxnID(),
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{BuyerID: order.BuyerID, Source: "reconciliation"},
			Data:          payload,
			Version:       1,
		})
	})
	if err != nil {
		s.log.Error(ctx, "queue order_confirmed event", err)
	}
}
