package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

// Repository exposes the buyer's mutable cart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	// RemoveFarmEntries deletes the buyer's cart lines belonging to the given
	// farms, leaving every other farm's lines untouched.
	RemoveFarmEntries(ctx context.Context, buyerID uuid.UUID, farmIDs []uuid.UUID) error
	ClearAll(ctx context.Context, buyerID uuid.UUID) error
}
