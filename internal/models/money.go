package models

import "github.com/shopspring/decimal"

// Amounts are stored with two decimal places. Menu prices must stay below
// MaxMenuPrice and line prices and order totals below MaxAmount.
var (
	MaxMenuPrice = decimal.New(1, 4)
	MaxAmount    = decimal.New(1, 8)
)

// WholeCents reports whether d needs no more than two decimal places
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
