package model

import "time"

// RefillLog is an append-only audit entry written for every refill.
// Client, code, location and installation date are snapshots taken at refill time.
type RefillLog struct {
	ID                  string     `gorm:"primaryKey;size:128" json:"id"`
	DispenserID         string     `gorm:"index;size:64;not null" json:"dispenser_id"`
	TechnicianUsername  string     `gorm:"size:128" json:"technician_username"`
	RefillAmountML      float64    `gorm:"not null" json:"refill_amount_ml"`
	LevelBeforeRefill   float64    `gorm:"not null" json:"level_before_refill"`
	CurrentMLRefill     float64    `gorm:"column:current_ml_refill;not null" json:"current_ml_refill"`
	FragranceCode       string     `gorm:"size:64" json:"fragrance_code"`
	ClientID            *string    `gorm:"index;size:128" json:"client_id"`
	MachineUniqueCode   string     `gorm:"size:128" json:"machine_unique_code"`
	Location            string     `gorm:"size:512" json:"location"`
	InstallationDate    *time.Time `json:"installation_date"`
	NumberOfRefillsDone int        `gorm:"not null" json:"number_of_refills_done"`
	Timestamp           time.Time  `gorm:"index;not null" json:"timestamp"`
	Notes               string     `gorm:"type:text" json:"notes"`
}
