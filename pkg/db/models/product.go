package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by exactly one farm.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmID         uuid.UUID `gorm:"column:farm_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Category       string    `gorm:"column:category"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
