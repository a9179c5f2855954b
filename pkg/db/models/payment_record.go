package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/types"
)

// PaymentRecord is the append-only ledger entry for a gateway payment.
// At most one record may exist per (order, gateway transaction id) pair;
// the unique index enforces it and duplicate inserts are treated as replays.
type PaymentRecord struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payment_records_order_txn"`
	BuyerID      uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	AmountCents  int                 `gorm:"column:amount_cents;not null"`
	Currency     enums.Currency      `gorm:"column:currency;type:text;not null;default:'ZAR'"`
	Status       enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'completed'"`
	Method       enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'gateway'"`
	GatewayTxnID *string             `gorm:"column:gateway_txn_id;uniqueIndex:ux_payment_records_order_txn"`
	Metadata     types.JSONMap       `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
