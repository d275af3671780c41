package domain

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// PriceLevel is an ordered FIFO sequence of live orders at one price on
// one side of a book (spec.md §3). Orders carry their own *list.Element
// back-reference, so Remove is O(1) — no scan required, satisfying the
// "intrusive iterator" design note in spec.md §9(a). A *list.Element is
// the stable node handle spec.md §9(a) calls for: stdlib container/list
// is used directly rather than hand-rolling one, since nothing in the
// corpus supplies a generic intrusive list (see DESIGN.md).
type PriceLevel struct {
	Price  decimal.Decimal
	orders *list.List
	qty    int64 // sum of RemainingQuantity across all orders in this level
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
	}
}

// Append adds o to the tail of the level, recording o's back-reference.
// o.RemainingQuantity must already be set.
func (pl *PriceLevel) Append(o *Order) {
	o.elem = pl.orders.PushBack(o)
	o.level = pl
	pl.qty += o.RemainingQuantity
}

// Remove splices o out of the level in O(1) using its back-reference.
// It is the caller's responsibility to ensure o is actually a member of
// this level.
func (pl *PriceLevel) Remove(o *Order) {
	pl.orders.Remove(o.elem)
	pl.qty -= o.RemainingQuantity
	o.elem = nil
	o.level = nil
}

// Fill reduces o's remaining quantity (and the level's aggregate) by
// qty, without removing o from the level. The caller removes o
// separately once it reaches zero.
func (pl *PriceLevel) Fill(o *Order, qty int64) {
	o.RemainingQuantity -= qty
	o.FilledQuantity += qty
	pl.qty -= qty
}

// Front returns the head order (earliest arrival), or nil if empty.
func (pl *PriceLevel) Front() *Order {
	e := pl.orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*Order)
}

// Empty reports whether the level has no resting orders.
func (pl *PriceLevel) Empty() bool {
	return pl.orders.Len() == 0
}

// Len returns the number of resting orders at this level.
func (pl *PriceLevel) Len() int {
	return pl.orders.Len()
}

// TotalQuantity returns the aggregate remaining quantity at this level,
// maintained incrementally so callers get it in O(1).
func (pl *PriceLevel) TotalQuantity() int64 {
	return pl.qty
}

// Orders returns a snapshot slice of the level's orders in FIFO order.
// Used by level-summary views and tests; never held onto by the matcher
// itself, which walks Front()/Remove() instead so it stays O(1) per
// fill (spec.md §4.2).
func (pl *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, pl.orders.Len())
	for e := pl.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Order))
	}
	return out
}
