package domain

import "github.com/shopspring/decimal"

// Trade is an immutable record emitted when two orders cross (spec.md
// §3). Price is always the resting order's price at the moment of the
// match — a crossing aggressor never improves the resting side.
type Trade struct {
	ID               int64
	AggressingID     string
	RestingID        string
	Symbol           string
	Price            decimal.Decimal
	Quantity         int64
	ExecutedAtMillis int64
}
