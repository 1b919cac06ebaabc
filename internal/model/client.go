package model

import "time"

// Client owns dispensers at one or more sites.
type Client struct {
	ID            string    `gorm:"primaryKey;size:128" json:"id"`
	Name          string    `gorm:"size:256;not null" json:"name"`
	ContactPerson string    `gorm:"size:256" json:"contact_person"`
	Email         string    `gorm:"size:256" json:"email"`
	Phone         string    `gorm:"size:64" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
