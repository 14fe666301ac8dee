package models

import "gorm.io/gorm"

// GridOrder is a limit order the grid strategy believes is still open on the
// exchange. The set of rows is the only source of truth for outstanding
// grid orders; a row is removed once reconciliation decides the order filled.
type GridOrder struct {
	gorm.Model
	OrderID  string  `gorm:"uniqueIndex;not null"`
	Side     string  `gorm:"not null"` // "buy" or "sell"
	Price    float64 `gorm:"not null"`
	Amount   float64 `gorm:"not null"` // committed notional in quote currency
	PlacedAt int64   `gorm:"not null"` // unix seconds
}
