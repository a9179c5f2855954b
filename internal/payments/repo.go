package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db"
	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

const uniqueOrderTxnConstraint = "ux_payment_records_order_txn"

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertIfAbsent(ctx context.Context, record *models.PaymentRecord) (InsertOutcome, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if db.IsUniqueViolation(err, uniqueOrderTxnConstraint) {
			return OutcomeAlreadyExists, nil
		}
		return "", err
	}
	return OutcomeInserted, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
