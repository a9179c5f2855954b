package effects

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/pkg/config"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/metrics"
	"github.com/veldmarket/farmcart-backend/pkg/outbox"
)

// Runner fires the best-effort follow-ups after an order confirms. Failures
// are logged and counted, never returned to the reconciliation flow.
type Runner interface {
	RunPostConfirmation(ctx context.Context, order *models.Order, groups []cart.FarmGroup)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams carries the effects dependencies.
type ServiceParams struct {
	DB      txRunner
	Outbox  eventEmitter
	Config  config.EffectsConfig
	Log     *logger.Logger
	Metrics *metrics.ReconciliationMetrics
	Now     func() time.Time
}

type service struct {
	db      txRunner
	outbox  eventEmitter
	cfg     config.EffectsConfig
	log     *logger.Logger
	metrics *metrics.ReconciliationMetrics
	now     func() time.Time
}

// NewService builds the post-confirmation effects runner.
func NewService(params ServiceParams) (Runner, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		db:      params.DB,
		outbox:  params.Outbox,
		cfg:     params.Config,
		log:     params.Log,
		metrics: params.Metrics,
		now:     params.Now,
	}, nil
}

type storageTipsPayload struct {
	OrderID    string   `json:"orderId"`
	Categories []string `json:"categories"`
}

type recurringOfferPayload struct {
	OrderID         string `json:"orderId"`
	TotalCents      int    `json:"totalCents"`
	DiscountPercent int    `json:"discountPercent"`
}

type reviewPromptPayload struct {
	OrderID  string    `json:"orderId"`
	FarmIDs  []string  `json:"farmIds"`
	RemindAt time.Time `json:"remindAt"`
}

// RunPostConfirmation queues the follow-up events for a confirmed order. Each
// effect is attempted independently; one failing never stops the others, and
// the aggregate failure is logged once at the end.
func (s *service) RunPostConfirmation(ctx context.Context, order *models.Order, groups []cart.FarmGroup) {
	if order == nil {
		return
	}

	var errs error
	if err := s.queueStorageTips(ctx, order); err != nil {
		s.dropEffect(ctx, "storage_tips", err)
		errs = multierr.Append(errs, err)
	}
	if err := s.queueRecurringOffer(ctx, order); err != nil {
		s.dropEffect(ctx, "recurring_offer", err)
		errs = multierr.Append(errs, err)
	}
	if err := s.queueReviewPrompt(ctx, order, groups); err != nil {
		s.dropEffect(ctx, "review_prompt", err)
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		s.log.Warn(ctx, fmt.Sprintf("post-confirmation effects dropped: %v", errs))
	}
}

// queueStorageTips asks for produce storage guidance keyed by the order's
// distinct item names.
func (s *service) queueStorageTips(ctx context.Context, order *models.Order) error {
	categories := make([]string, 0, len(order.Items))
	seen := make(map[string]bool)
	for _, item := range order.Items {
		if item.Name == "" || seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		categories = append(categories, item.Name)
	}
	return s.emit(ctx, order, enums.EventStorageTipsRequested, storageTipsPayload{
		OrderID:    order.ID.String(),
		Categories: categories,
	})
}

// queueRecurringOffer proposes a repeat-order discount for orders above the
// configured threshold.
func (s *service) queueRecurringOffer(ctx context.Context, order *models.Order) error {
	if order.TotalCents < s.cfg.RecurringOfferMinTotalCents {
		return nil
	}
	return s.emit(ctx, order, enums.EventRecurringOfferReady, recurringOfferPayload{
		OrderID:         order.ID.String(),
		TotalCents:      order.TotalCents,
		DiscountPercent: s.cfg.RecurringDiscountPercent,
	})
}

// queueReviewPrompt schedules a review nudge after the delivery settles.
func (s *service) queueReviewPrompt(ctx context.Context, order *models.Order, groups []cart.FarmGroup) error {
	farmIDs := make([]string, 0, len(groups))
	for _, group := range groups {
		farmIDs = append(farmIDs, group.FarmID.String())
	}
	return s.emit(ctx, order, enums.EventReviewPromptScheduled, reviewPromptPayload{
		OrderID:  order.ID.String(),
		FarmIDs:  farmIDs,
		RemindAt: s.now().Add(s.cfg.ReviewPromptDelay),
	})
}

func (s *service) emit(ctx context.Context, order *models.Order, eventType enums.OutboxEventType, payload any) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{BuyerID: order.BuyerID, Source: "reconciliation"},
			Data:          payload,
			Version:       1,
			OccurredAt:    s.now(),
		})
	})
}

func (s *service) dropEffect(ctx context.Context, effect string, err error) {
	s.metrics.IncEffectFailure(effect)
	s.log.Error(ctx, fmt.Sprintf("effect %s dropped", effect), err)
}
