package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/internal/catalog"
	"github.com/veldmarket/farmcart-backend/pkg/config"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
)

// FarmSummary is one farm's slice of the confirmation screen.
type FarmSummary struct {
	FarmID         uuid.UUID `json:"farm_id"`
	FarmName       string    `json:"farm_name"`
	SubtotalCents  int       `json:"subtotal_cents"`
	ItemCount      int       `json:"item_count"`
	PrepMinutes    int       `json:"prep_minutes"`
	EstimatedReady time.Time `json:"estimated_ready"`
}

// Projection is the buyer-facing order summary. DisplayTotalCents is what the
// buyer sees; when the gateway reported a gross amount that figure wins, while
// the internal breakdown stays authoritative for bookkeeping.
type Projection struct {
	OrderID           uuid.UUID           `json:"order_id"`
	Status            enums.OrderStatus   `json:"status"`
	Currency          enums.Currency      `json:"currency"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	SubtotalCents     int                 `json:"subtotal_cents"`
	DeliveryFeeCents  int                 `json:"delivery_fee_cents"`
	TaxCents          int                 `json:"tax_cents"`
	GrandTotalCents   int                 `json:"grand_total_cents"`
	DisplayTotalCents int                 `json:"display_total_cents"`
	GatewayReported   bool                `json:"gateway_reported"`
	Farms             []FarmSummary       `json:"farms"`
}

// Input carries the per-callback facts the projector cannot read from the order.
type Input struct {
	// GatewayGrossCents is the gross amount the gateway reported, when any.
	GatewayGrossCents *int
	// PaymentConfirmed is false when the callback carried no transaction id;
	// the summary then marks the payment method as unconfirmed.
	PaymentConfirmed bool
}

// Projector derives the order summary shown after reconciliation.
type Projector interface {
	Project(ctx context.Context, order *models.Order, input Input) (*Projection, error)
}

// ServiceParams carries the projector dependencies.
type ServiceParams struct {
	Partitioner cart.Partitioner
	Catalog     catalog.Repository
	Delivery    config.DeliveryConfig
	Tax         config.TaxConfig
	Log         *logger.Logger
	Now         func() time.Time
}

type service struct {
	partitioner cart.Partitioner
	catalog     catalog.Repository
	delivery    config.DeliveryConfig
	tax         config.TaxConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewService builds the summary projector.
func NewService(params ServiceParams) (Projector, error) {
	if params.Partitioner == nil {
		return nil, fmt.Errorf("cart partitioner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		partitioner: params.Partitioner,
		catalog:     params.Catalog,
		delivery:    params.Delivery,
		tax:         params.Tax,
		log:         params.Log,
		now:         params.Now,
	}, nil
}

// Project builds the summary from the order's stored breakdown. Stored
// delivery fee and tax are authoritative once set; orders that never had them
// priced in get the fee recomputed from distance and tax from the configured
// rate on the subtotal.
func (s *service) Project(ctx context.Context, order *models.Order, input Input) (*Projection, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}

	subtotal := 0
	for _, item := range order.Items {
		subtotal += item.Qty * item.UnitPriceCents
	}
	if subtotal == 0 {
		subtotal = order.SubtotalCents
	}

	fee := order.DeliveryFeeCents
	if fee == 0 {
		fee = cart.ComputeDeliveryFee(s.delivery, order.DeliveryDistanceKM)
	}

	tax := order.TaxCents
	if tax == 0 {
		tax = subtotal * s.tax.RatePercent / 100
	}

	grand := subtotal + fee + tax

	display := grand
	gatewayReported := false
	if input.GatewayGrossCents != nil && *input.GatewayGrossCents > 0 {
		display = *input.GatewayGrossCents
		gatewayReported = true
	}

	method := order.PaymentMethod
	if !input.PaymentConfirmed {
		method = enums.PaymentMethodUnconfirmed
	}

	farms, err := s.farmSummaries(ctx, order.Items)
	if err != nil {
		// The breakdown is cosmetic next to the money figures; degrade to an
		// unnamed grouping rather than failing the summary.
		s.log.Warn(ctx, fmt.Sprintf("farm summaries degraded: %v", err))
	}

	return &Projection{
		OrderID:           order.ID,
		Status:            order.Status,
		Currency:          order.Currency,
		PaymentMethod:     method,
		SubtotalCents:     subtotal,
		DeliveryFeeCents:  fee,
		TaxCents:          tax,
		GrandTotalCents:   grand,
		DisplayTotalCents: display,
		GatewayReported:   gatewayReported,
		Farms:             farms,
	}, nil
}

func (s *service) farmSummaries(ctx context.Context, items []models.OrderItem) ([]FarmSummary, error) {
	groups := s.partitioner.GroupByFarm(items)
	if len(groups) == 0 {
		return nil, nil
	}

	farmIDs := make([]uuid.UUID, 0, len(groups))
	for _, group := range groups {
		farmIDs = append(farmIDs, group.FarmID)
	}

	byID := make(map[uuid.UUID]models.Farm)
	farms, err := s.catalog.FindFarmsByIDs(ctx, farmIDs)
	if err == nil {
		for _, farm := range farms {
			byID[farm.ID] = farm
		}
	}

	now := s.now()
	summaries := make([]FarmSummary, 0, len(groups))
	for _, group := range groups {
		prep := s.delivery.PrepWindowMinutes
		name := ""
		if farm, ok := byID[group.FarmID]; ok {
			name = farm.Name
			if farm.PrepTimeMinutes > 0 {
				prep = farm.PrepTimeMinutes
			}
		}
		summaries = append(summaries, FarmSummary{
			FarmID:         group.FarmID,
			FarmName:       name,
			SubtotalCents:  group.SubtotalCents,
			ItemCount:      len(group.Items),
			PrepMinutes:    prep,
			EstimatedReady: now.Add(time.Duration(prep) * time.Minute),
		})
	}
	return summaries, err
}
