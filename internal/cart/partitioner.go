package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/internal/catalog"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/metrics"
)

// FarmGroup is one farm's slice of an order. Items keep their original order;
// groups appear in first-seen order so the breakdown is deterministic.
type FarmGroup struct {
	FarmID        uuid.UUID
	Items         []models.OrderItem
	SubtotalCents int
}

// ClearOutcome reports how the paid lines were removed from the cart.
type ClearOutcome string

const (
	// ClearOutcomeSelective means only the paid farms' lines were removed.
	ClearOutcomeSelective ClearOutcome = "selective"
	// ClearOutcomeFullFallback means farm resolution failed for at least one
	// item and the whole cart was cleared instead. Degraded, never silent.
	ClearOutcomeFullFallback ClearOutcome = "full_fallback"
)

// Partitioner splits an order across farms and clears the matching cart lines.
type Partitioner interface {
	GroupByFarm(items []models.OrderItem) []FarmGroup
	ClearPaidFarms(ctx context.Context, buyerID uuid.UUID, items []models.OrderItem) (ClearOutcome, error)
}

// ServiceParams carries the partitioner dependencies.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
	Log     *logger.Logger
	Metrics *metrics.ReconciliationMetrics
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	log     *logger.Logger
	metrics *metrics.ReconciliationMetrics
}

// NewService builds the cart partitioner.
func NewService(params ServiceParams) (Partitioner, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		log:     params.Log,
		metrics: params.Metrics,
	}, nil
}

// GroupByFarm partitions order items by owning farm. Per-farm subtotal is the
// sum of qty times unit price over the farm's items.
func (s *service) GroupByFarm(items []models.OrderItem) []FarmGroup {
	var groups []FarmGroup
	index := make(map[uuid.UUID]int)
	for _, item := range items {
		pos, seen := index[item.FarmID]
		if !seen {
			pos = len(groups)
			index[item.FarmID] = pos
			groups = append(groups, FarmGroup{FarmID: item.FarmID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
		groups[pos].SubtotalCents += item.Qty * item.UnitPriceCents
	}
	return groups
}

// ClearPaidFarms removes the buyer's cart lines for every farm covered by the
// order. When any item's farm cannot be resolved, the whole cart is cleared
// instead so the buyer is never left with paid-for lines; unrelated farms'
// lines are sacrificed and the fallback is logged and counted.
func (s *service) ClearPaidFarms(ctx context.Context, buyerID uuid.UUID, items []models.OrderItem) (ClearOutcome, error) {
	if buyerID == uuid.Nil {
		return "", fmt.Errorf("buyer id required")
	}
	if len(items) == 0 {
		return ClearOutcomeSelective, nil
	}

	farmIDs, err := s.resolveFarms(ctx, items)
	if err != nil {
		s.metrics.IncDegradedClear()
		s.log.Warn(ctx, fmt.Sprintf("farm resolution failed, clearing full cart: %v", err))
		if clearErr := s.repo.ClearAll(ctx, buyerID); clearErr != nil {
			return "", fmt.Errorf("full cart clear fallback: %w", clearErr)
		}
		return ClearOutcomeFullFallback, nil
	}

	if err := s.repo.RemoveFarmEntries(ctx, buyerID, farmIDs); err != nil {
		return "", fmt.Errorf("remove farm entries: %w", err)
	}
	return ClearOutcomeSelective, nil
}

// resolveFarms returns the distinct farm ids covering the order items. Items
// missing a farm id fall back to the catalog; an unresolvable product fails
// the whole resolution.
func (s *service) resolveFarms(ctx context.Context, items []models.OrderItem) ([]uuid.UUID, error) {
	var unresolved []uuid.UUID
	for _, item := range items {
		if item.FarmID == uuid.Nil {
			unresolved = append(unresolved, item.ProductID)
		}
	}

	byProduct := make(map[uuid.UUID]uuid.UUID)
	if len(unresolved) > 0 {
		resolved, err := s.catalog.ResolveFarmsForProducts(ctx, unresolved)
		if err != nil {
			return nil, fmt.Errorf("resolve farms for products: %w", err)
		}
		byProduct = resolved
	}

	seen := make(map[uuid.UUID]bool)
	var farmIDs []uuid.UUID
	for _, item := range items {
		farmID := item.FarmID
		if farmID == uuid.Nil {
			resolved, ok := byProduct[item.ProductID]
			if !ok {
				return nil, fmt.Errorf("no farm for product %s", item.ProductID)
			}
			farmID = resolved
		}
		if !seen[farmID] {
			seen[farmID] = true
			farmIDs = append(farmIDs, farmID)
		}
	}
	return farmIDs, nil
}
