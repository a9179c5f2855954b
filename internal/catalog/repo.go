package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindFarmByID(ctx context.Context, id uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&farm).Error
	if err != nil {
		return nil, err
	}
	return &farm, nil
}

func (r *repository) FindFarmsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Farm, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var farms []models.Farm
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&farms).Error
	if err != nil {
		return nil, err
	}
	return farms, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ResolveFarmsForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	result := make(map[uuid.UUID]uuid.UUID, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ID     uuid.UUID
		FarmID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id", "farm_id").
		Where("id IN ?", productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.FarmID
	}
	return result, nil
}
