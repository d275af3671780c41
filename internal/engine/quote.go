package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/lobengine/internal/domain"
)

// QuotePriceLevel is one price level consumed by a simulated market order.
type QuotePriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
}

// QuoteResult is the outcome of simulating a market order against the book
// as it currently stands, without mutating anything. Grounded on the
// teacher's Matcher.SimulateMarketOrder
// (enzopsm-miniexchange/internal/service/stock.go's StockService.GetQuote
// caller), generalized from int64 cents to decimal.Decimal.
type QuoteResult struct {
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice decimal.Decimal
	HasEstimate       bool
	EstimatedTotal    decimal.Decimal
	PriceLevels       []QuotePriceLevel
}

// Quote simulates a market order of the given side and quantity against the
// opposite ladder, reporting how much of it could fill and at what
// estimated cost, without resting, discarding, or otherwise mutating the
// book.
func (b *Book) Quote(side domain.Side, quantity int64) QuoteResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	opposite := b.oppositeLadder(side)
	remaining := quantity

	result := QuoteResult{}
	totalCost := decimal.Zero

	for _, lv := range opposite.Levels(opposite.Len()) {
		if remaining <= 0 {
			break
		}
		take := lv.Quantity
		if take > remaining {
			take = remaining
		}
		result.PriceLevels = append(result.PriceLevels, QuotePriceLevel{Price: lv.Price, Quantity: take})
		totalCost = totalCost.Add(lv.Price.Mul(decimal.NewFromInt(take)))
		remaining -= take
	}

	result.QuantityAvailable = quantity - remaining
	result.FullyFillable = remaining == 0
	if result.QuantityAvailable > 0 {
		result.HasEstimate = true
		result.EstimatedTotal = totalCost
		result.EstimatedAvgPrice = totalCost.Div(decimal.NewFromInt(result.QuantityAvailable))
	}

	return result
}
