package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

// Repository exposes read access to farms and products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindFarmByID(ctx context.Context, id uuid.UUID) (*models.Farm, error)
	FindFarmsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Farm, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ResolveFarmsForProducts maps each product id to its owning farm id.
	// Products that do not exist are absent from the result.
	ResolveFarmsForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
}
