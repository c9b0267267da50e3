package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept for prices and totals.
const MoneyPlaces = 2

// InventoryPlaces is the finest inventory quantity that is stored.
const InventoryPlaces = 3

// FitsInventoryScale reports whether d has no digits beyond InventoryPlaces.
func FitsInventoryScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(InventoryPlaces))
}

// Money rounds d half away from zero to MoneyPlaces.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
