package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
)

// InsertOutcome reports how an append into the payment ledger resolved.
type InsertOutcome string

const (
	// OutcomeInserted means a new ledger row was written.
	OutcomeInserted InsertOutcome = "inserted"
	// OutcomeAlreadyExists means the (order, transaction id) pair was already
	// recorded; the caller treats this as success via idempotence.
	OutcomeAlreadyExists InsertOutcome = "already_exists"
)

// Repository exposes the append-only payment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// InsertIfAbsent appends a record, converting the unique-index conflict on
	// (order_id, gateway_txn_id) into OutcomeAlreadyExists.
	InsertIfAbsent(ctx context.Context, record *models.PaymentRecord) (InsertOutcome, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error)
}
