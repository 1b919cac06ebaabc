package model

import "time"

// MachineTemplate is a catalog entry (SKU) that instances can be created from.
type MachineTemplate struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	SKU              string    `gorm:"uniqueIndex;size:128;not null" json:"sku"`
	Name             string    `gorm:"size:256;not null" json:"name"`
	RefillCapacityML float64   `gorm:"not null" json:"refill_capacity_ml"`
	MLPerHour        float64   `json:"ml_per_hour"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
