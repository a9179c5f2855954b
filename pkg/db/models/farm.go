package models

import (
	"time"

	"github.com/google/uuid"
)

// Farm is a vendor selling through the marketplace.
type Farm struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Region          string    `gorm:"column:region"`
	PrepTimeMinutes int       `gorm:"column:prep_time_minutes;not null;default:90"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
