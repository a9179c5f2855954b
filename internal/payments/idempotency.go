package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veldmarket/farmcart-backend/pkg/redis"
)

// IdempotencyGuard is the advisory fast path that short-circuits replayed
// callbacks before they touch the database. The compare-and-swap claim on the
// order remains the correctness authority; a lost or expired key only costs a
// redundant round through the state machine.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

// NewIdempotencyGuard builds a guard scoped to one callback surface.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when reconciliation already completed for this
// order in the current window, marking it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, errors.New("order id is required")
	}
	key := g.store.IdempotencyKey(g.scope, orderID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the marker so a failed reconciliation can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("order id is required")
	}
	key := g.store.IdempotencyKey(g.scope, orderID)
	return g.store.Del(ctx, key)
}
