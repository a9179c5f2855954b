package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/pkg/enums"
)

// Order represents a buyer's checkout unit spanning one or more farms.
// Totals are immutable once the status leaves draft; rows are never deleted.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'draft'"`
	Currency           enums.Currency      `gorm:"column:currency;type:text;not null;default:'ZAR'"`
	SubtotalCents      int                 `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents   int                 `gorm:"column:delivery_fee_cents;not null;default:0"`
	TaxCents           int                 `gorm:"column:tax_cents;not null;default:0"`
	TotalCents         int                 `gorm:"column:total_cents;not null"`
	DeliveryDistanceKM float64             `gorm:"column:delivery_distance_km;not null;default:0"`
	ShippingAddress    *string             `gorm:"column:shipping_address"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'gateway'"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentRecords     []PaymentRecord     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
