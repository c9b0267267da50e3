package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxProductNameLength bounds product names, in characters.
const MaxProductNameLength = 40

// Product is a catalog item. Inventory is a decimal quantity so goods sold
// by weight or volume fit the same model.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Inventory      decimal.Decimal `json:"inventory"`
	ProductionDate time.Time       `json:"production_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
	IsAvailable    bool            `json:"is_available"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ComputeAvailability is the availability rule applied when a product is
// created: it expires after it was produced and there is stock.
func ComputeAvailability(production, expiry time.Time, inventory decimal.Decimal) bool {
	return expiry.After(production) && inventory.IsPositive()
}
