package domain

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// Side indicates whether an order is on the buy or sell side of the book.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes the four order types the engine understands.
type OrderType string

const (
	OrderTypeLimit     OrderType = "limit"
	OrderTypeMarket    OrderType = "market"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// TimeInForce tags an order with how long it should remain eligible to
// match. See SPEC_FULL.md §9 for how ImmediateOrCancel/FillOrKill are
// honored by the Matcher.
type TimeInForce string

const (
	GoodTillCancel    TimeInForce = "gtc"
	ImmediateOrCancel TimeInForce = "ioc"
	FillOrKill        TimeInForce = "fok"
)

// OrderStatus reflects the state machine in spec.md §4.5.
type OrderStatus string

const (
	StatusNew            OrderStatus = "new"
	StatusPendingTrigger OrderStatus = "pending_trigger" // stop/stop-limit, untriggered
	StatusResting        OrderStatus = "resting"
	StatusFilled         OrderStatus = "filled"
	StatusCancelled      OrderStatus = "cancelled"
	StatusDiscarded      OrderStatus = "discarded"
)

// Order is the unit of intent submitted to a Book. Callers populate ID,
// TraderID, Symbol, Side, Type, TimeInForce, Price, StopPrice, and
// Quantity; the Book owns everything else once Submit is called.
type Order struct {
	ID          string
	TraderID    string
	Symbol      string
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce

	Price     decimal.Decimal // meaningful for Limit and StopLimit
	StopPrice decimal.Decimal // meaningful for Stop and StopLimit

	Quantity          int64 // original quantity, never mutated after entry
	RemainingQuantity int64
	FilledQuantity    int64

	Timestamp int64 // milliseconds, audit only — never consulted by matching
	Status    OrderStatus

	// level is the PriceLevel this order currently rests in, nil when the
	// order isn't resting on a ladder. elem is the back-reference into
	// that level's intrusive FIFO queue, giving O(1) Cancel.
	level *PriceLevel
	elem  *list.Element
}

// Validate checks the field preconditions spec.md §4.1 assigns to Submit.
// Id collision is checked separately by the Book, which alone knows the
// set of live ids.
func (o *Order) Validate(symbol string) error {
	if o.Symbol != symbol {
		return ErrInvalidOrder
	}
	if o.Quantity <= 0 {
		return ErrInvalidOrder
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return ErrInvalidOrder
	}
	switch o.Type {
	case OrderTypeLimit:
		if !o.Price.IsPositive() {
			return ErrInvalidOrder
		}
	case OrderTypeMarket:
		// no price fields required
	case OrderTypeStop:
		if !o.StopPrice.IsPositive() {
			return ErrInvalidOrder
		}
	case OrderTypeStopLimit:
		if !o.Price.IsPositive() || !o.StopPrice.IsPositive() {
			return ErrInvalidOrder
		}
	default:
		return ErrInvalidOrder
	}
	return nil
}

// TriggersOn reports whether a trade at tradePrice triggers this stop or
// stop-limit order, per spec.md §4.4: a Buy stop triggers when trade
// price >= its stop price; a Sell stop triggers when trade price <= its
// stop price.
func (o *Order) TriggersOn(tradePrice decimal.Decimal) bool {
	if o.Side == SideBuy {
		return tradePrice.GreaterThanOrEqual(o.StopPrice)
	}
	return tradePrice.LessThanOrEqual(o.StopPrice)
}

// PromoteFromStop converts a triggered Stop into a Market order and a
// triggered StopLimit into a Limit order, per spec.md §4.4 step 1.
func (o *Order) PromoteFromStop() {
	switch o.Type {
	case OrderTypeStop:
		o.Type = OrderTypeMarket
	case OrderTypeStopLimit:
		o.Type = OrderTypeLimit
	}
}

// InLevel reports whether the order currently rests in a ladder
// PriceLevel.
func (o *Order) InLevel() bool {
	return o.level != nil
}

// Level returns the PriceLevel the order currently rests in, or nil.
func (o *Order) Level() *PriceLevel {
	return o.level
}

// AveragePrice computes the volume-weighted average fill price from
// FilledQuantity and the trades applied to this order, or (zero, false)
// if nothing has filled yet. Audit-only, mirrors the teacher's
// domain.Order.AveragePrice.
func (o *Order) AveragePrice(fills []Trade) (decimal.Decimal, bool) {
	if o.FilledQuantity == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, t := range fills {
		total = total.Add(t.Price.Mul(decimal.NewFromInt(t.Quantity)))
	}
	return total.Div(decimal.NewFromInt(o.FilledQuantity)), true
}
