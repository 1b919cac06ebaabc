package model

import "time"

// InstanceStatus is the lifecycle state of a physical dispenser.
type InstanceStatus string

const (
	StatusInstalled    InstanceStatus = "installed"
	StatusAssigned     InstanceStatus = "assigned"
	StatusDiscontinued InstanceStatus = "discontinued"
)

// Valid reports whether s is one of the known statuses.
func (s InstanceStatus) Valid() bool {
	switch s {
	case StatusInstalled, StatusAssigned, StatusDiscontinued:
		return true
	}
	return false
}

// MachineInstance is a physical dispenser owned by a client.
// Installed, assigned and discontinued units share this table; status is the partition key.
type MachineInstance struct {
	ID                string         `gorm:"primaryKey;size:64" json:"id"`
	TemplateID        *string        `gorm:"index;size:64" json:"template_id"`
	Name              string         `gorm:"size:256" json:"name"`
	SKU               string         `gorm:"index;size:128" json:"sku"`
	ClientID          *string        `gorm:"index;size:128" json:"client_id"`
	Location          string         `gorm:"size:512" json:"location"`
	UniqueCode        string         `gorm:"uniqueIndex;size:128;not null" json:"unique_code"`
	CurrentScheduleID *string        `gorm:"index;size:64" json:"current_schedule_id"`
	RefillCapacityML  float64        `gorm:"not null" json:"refill_capacity_ml"`
	MLPerHour         *float64       `json:"ml_per_hour"`
	CurrentLevelML    float64        `gorm:"not null" json:"current_level_ml"`
	LastRefillDate    *time.Time     `json:"last_refill_date"`
	InstallationDate  *time.Time     `json:"installation_date"`
	FragranceCode     string         `gorm:"size:64" json:"fragrance_code"`
	Status            InstanceStatus `gorm:"size:32;index;not null" json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ClampLevel keeps CurrentLevelML inside [0, RefillCapacityML].
// It reports whether the stored value had to be changed.
func (m *MachineInstance) ClampLevel() bool {
	level := m.CurrentLevelML
	if level < 0 {
		level = 0
	}
	if m.RefillCapacityML > 0 && level > m.RefillCapacityML {
		level = m.RefillCapacityML
	}
	changed := level != m.CurrentLevelML
	m.CurrentLevelML = level
	return changed
}
