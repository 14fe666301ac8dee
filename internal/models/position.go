package models

import "gorm.io/gorm"

// Position is the persisted state of the RSI strategy.
// There should only ever be one row in this table.
//
// Invariant: Holding == false implies EntryPrice == 0 and Quantity == 0;
// Holding == true implies Quantity > 0.
type Position struct {
	gorm.Model
	Holding    bool    `gorm:"not null"`
	EntryPrice float64 `gorm:"not null"`
	Quantity   float64 `gorm:"not null"`
}
