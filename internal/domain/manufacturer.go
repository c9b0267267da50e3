package domain

import "time"

// Manufacturer rate bounds.
const (
	MinManufacturerRate = 0
	MaxManufacturerRate = 5
)

// Manufacturer supplies products. Email, address and phone are each unique.
type Manufacturer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerName     string    `json:"owner_name"`
	Country       string    `json:"country"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Rate          int       `json:"rate"`
	EstablishDate time.Time `json:"establish_date"`
	IsActive      bool      `json:"is_active"`
	UserID        *string   `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
