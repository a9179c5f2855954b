package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
)

// Repository exposes order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	// CompareAndSwapStatus transitions the order only when the stored status is
	// one of the expected values. It reports whether the swap won.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected []enums.OrderStatus, next enums.OrderStatus) (bool, error)
}
