package effects

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/pkg/config"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events  []outbox.DomainEvent
	failOn  map[enums.OutboxEventType]error
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err, ok := f.failOn[event.EventType]; ok {
		return err
	}
	f.events = append(f.events, event)
	return nil
}

func effectsConfig() config.EffectsConfig {
	return config.EffectsConfig{
		RecurringOfferMinTotalCents: 15000,
		RecurringDiscountPercent:    10,
		ReviewPromptDelay:           48 * time.Hour,
	}
}

func newRunner(t *testing.T, emitter *fakeEmitter) Runner {
	t.Helper()

	svc, err := NewService(ServiceParams{
		DB:     fakeTxRunner{},
		Outbox: emitter,
		Config: effectsConfig(),
		Log:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:    func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func confirmedOrder(totalCents int) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		BuyerID:    uuid.New(),
		Status:     enums.OrderStatusConfirmed,
		TotalCents: totalCents,
		Items: []models.OrderItem{
			{FarmID: uuid.New(), Name: "Free Range Eggs 18", Qty: 2, UnitPriceCents: 4500},
			{FarmID: uuid.New(), Name: "Raw Honey 500g", Qty: 1, UnitPriceCents: 9500},
		},
	}
}

func eventTypes(events []outbox.DomainEvent) []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func TestRunPostConfirmationQueuesAllEffects(t *testing.T) {
	emitter := &fakeEmitter{}
	runner := newRunner(t, emitter)

	order := confirmedOrder(25500)
	groups := []cart.FarmGroup{{FarmID: order.Items[0].FarmID}, {FarmID: order.Items[1].FarmID}}

	runner.RunPostConfirmation(context.Background(), order, groups)

	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventStorageTipsRequested,
		enums.EventRecurringOfferReady,
		enums.EventReviewPromptScheduled,
	}, eventTypes(emitter.events))

	for _, event := range emitter.events {
		assert.Equal(t, enums.AggregateOrder, event.AggregateType)
		assert.Equal(t, order.ID, event.AggregateID)
		require.NotNil(t, event.Actor)
		assert.Equal(t, order.BuyerID, event.Actor.BuyerID)
	}
}

func TestRunPostConfirmationSkipsRecurringOfferBelowThreshold(t *testing.T) {
	emitter := &fakeEmitter{}
	runner := newRunner(t, emitter)

	runner.RunPostConfirmation(context.Background(), confirmedOrder(9900), nil)

	assert.NotContains(t, eventTypes(emitter.events), enums.EventRecurringOfferReady)
	assert.Contains(t, eventTypes(emitter.events), enums.EventStorageTipsRequested)
}

func TestRunPostConfirmationFailuresAreSwallowed(t *testing.T) {
	emitter := &fakeEmitter{failOn: map[enums.OutboxEventType]error{
		enums.EventStorageTipsRequested: errors.New("write failed"),
	}}
	runner := newRunner(t, emitter)

	// Must not panic or propagate; the remaining effects still run.
	runner.RunPostConfirmation(context.Background(), confirmedOrder(25500), nil)

	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventRecurringOfferReady,
		enums.EventReviewPromptScheduled,
	}, eventTypes(emitter.events))
}

func TestRunPostConfirmationNilOrder(t *testing.T) {
	emitter := &fakeEmitter{}
	runner := newRunner(t, emitter)

	runner.RunPostConfirmation(context.Background(), nil, nil)
	assert.Empty(t, emitter.events)
}
