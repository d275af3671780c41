// Package analytics computes read-only market views on top of the
// engine: a VWAP reference price, aggregated book depth, and market-order
// quote simulation. Adapted from the teacher's internal/service.StockService,
// generalized to decimal prices and to the symbol-routing Engine's
// multi-book registry instead of a single BookManager.
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/engine"
	"github.com/efreitasn/lobengine/internal/store"
)

// PriceView is the result of a reference-price query.
type PriceView struct {
	Symbol         string
	CurrentPrice   decimal.Decimal
	HasPrice       bool
	Window         string
	TradesInWindow int
	LastTradeAt    int64
	HasLastTrade   bool
}

// BookLevelView is one aggregated price level in a BookView.
type BookLevelView struct {
	Price    decimal.Decimal
	Quantity int64
}

// BookView is the result of a book-depth query.
type BookView struct {
	Symbol     string
	Bids       []BookLevelView
	Asks       []BookLevelView
	Spread     decimal.Decimal
	HasSpread  bool
	SnapshotAt time.Time
}

// QuoteView is the result of a market-order simulation query.
type QuoteView struct {
	Symbol            string
	Side              domain.Side
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice decimal.Decimal
	EstimatedTotal    decimal.Decimal
	HasEstimate       bool
	PriceLevels       []engine.QuotePriceLevel
	QuotedAt          time.Time
}

// Analytics answers read-only market queries against a book and its
// trade tape. Clock is injected so VWAP windowing is deterministic under
// test, mirroring domain.Clock's role in the core engine.
type Analytics struct {
	trades     *store.TradeTape
	vwapWindow time.Duration
	clock      domain.Clock
}

// New creates an Analytics reading from trades, windowing VWAP queries
// over vwapWindow, using clock for "now".
func New(trades *store.TradeTape, vwapWindow time.Duration, clock domain.Clock) *Analytics {
	return &Analytics{trades: trades, vwapWindow: vwapWindow, clock: clock}
}

// Price returns the VWAP reference price for symbol over the configured
// window, falling back to the last trade's price if the window is empty,
// or HasPrice=false if the symbol has never traded.
func (a *Analytics) Price(symbol string) PriceView {
	view := PriceView{Symbol: symbol, Window: formatDuration(a.vwapWindow)}

	last, ok := a.trades.Last(symbol)
	if !ok {
		return view
	}
	view.LastTradeAt = last.ExecutedAtMillis
	view.HasLastTrade = true

	windowStart := a.clock.Now() - a.vwapWindow.Milliseconds()
	inWindow := a.trades.Since(symbol, windowStart)
	view.TradesInWindow = len(inWindow)

	sumPriceQty := decimal.Zero
	var sumQty int64
	for _, t := range inWindow {
		sumPriceQty = sumPriceQty.Add(t.Price.Mul(decimal.NewFromInt(t.Quantity)))
		sumQty += t.Quantity
	}

	view.HasPrice = true
	if sumQty > 0 {
		view.CurrentPrice = sumPriceQty.Div(decimal.NewFromInt(sumQty))
	} else {
		view.CurrentPrice = last.Price
	}
	return view
}

// Book returns the top depth price levels on each side of book, plus the
// current spread.
func (a *Analytics) Book(symbol string, book *engine.Book, depth int) (BookView, error) {
	if depth < 1 || depth > 50 {
		return BookView{}, &domain.ValidationError{Message: "depth must be between 1 and 50"}
	}

	bidLevels := book.BidLevels(depth)
	askLevels := book.AskLevels(depth)

	view := BookView{
		Symbol:     symbol,
		Bids:       make([]BookLevelView, len(bidLevels)),
		Asks:       make([]BookLevelView, len(askLevels)),
		SnapshotAt: time.UnixMilli(a.clock.Now()),
	}
	for i, lv := range bidLevels {
		view.Bids[i] = BookLevelView{Price: lv.Price, Quantity: lv.Quantity}
	}
	for i, lv := range askLevels {
		view.Asks[i] = BookLevelView{Price: lv.Price, Quantity: lv.Quantity}
	}

	if len(bidLevels) > 0 && len(askLevels) > 0 {
		view.Spread = askLevels[0].Price.Sub(bidLevels[0].Price)
		view.HasSpread = true
	}

	return view, nil
}

// Quote simulates a market order of quantity on side against book,
// without mutating it.
func (a *Analytics) Quote(symbol string, book *engine.Book, side domain.Side, quantity int64) (QuoteView, error) {
	if side != domain.SideBuy && side != domain.SideSell {
		return QuoteView{}, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if quantity <= 0 {
		return QuoteView{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	result := book.Quote(side, quantity)

	return QuoteView{
		Symbol:            symbol,
		Side:              side,
		QuantityRequested: quantity,
		QuantityAvailable: result.QuantityAvailable,
		FullyFillable:     result.FullyFillable,
		EstimatedAvgPrice: result.EstimatedAvgPrice,
		EstimatedTotal:    result.EstimatedTotal,
		HasEstimate:       result.HasEstimate,
		PriceLevels:       result.PriceLevels,
		QuotedAt:          time.UnixMilli(a.clock.Now()),
	}, nil
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
