// Package engine implements the core limit order book matching engine:
// an ordered multi-level book with intrusive per-level FIFO queues, a
// cross-matching loop over two differently-ordered sides, and a
// stop/stop-limit subsystem that recursively re-enters matching when
// price triggers fire. One Book instance owns all state for one symbol.
package engine

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/lobengine/internal/domain"
)

// Book owns all state for a single symbol's order book (spec.md §2).
// Every public method runs to completion, including any stop-trigger
// cascade, before returning — there is no reentrancy and no suspension
// point (spec.md §5). The embedded mutex gives an embedder "a single
// exclusive lock around each public operation," which spec.md §5 calls
// sufficient and correct, matching the teacher's per-book sync.RWMutex
// in enzopsm-miniexchange/internal/engine/book.go.
type Book struct {
	mu sync.Mutex

	symbol string
	clock  domain.Clock

	bids *Ladder
	asks *Ladder

	orders map[string]*domain.Order // sole owner of every live order (invariant 1/2)
	stops  *stopRegistry

	pending []*domain.Order // pending-triggered queue (spec.md §3)

	tradeSeq int64
}

// NewBook creates an empty Book for symbol, using clock for trade
// timestamps.
func NewBook(symbol string, clock domain.Clock) *Book {
	return &Book{
		symbol: symbol,
		clock:  clock,
		bids:   NewBidLadder(),
		asks:   NewAskLadder(),
		orders: make(map[string]*domain.Order),
		stops:  newStopRegistry(),
	}
}

// Symbol returns the symbol this Book matches.
func (b *Book) Symbol() string {
	return b.symbol
}

func (b *Book) ownLadder(side domain.Side) *Ladder {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeLadder(side domain.Side) *Ladder {
	if side == domain.SideBuy {
		return b.asks
	}
	return b.bids
}

// Submit accepts a new order, per spec.md §4.1. Limit and Market orders
// enter the Matcher immediately; Stop and StopLimit orders rest in the
// stop registry. Any trades produced — including cascades from stops
// triggered by this submission — are returned in generation order.
func (b *Book) Submit(o *domain.Order) ([]domain.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := o.Validate(b.symbol); err != nil {
		return nil, err
	}
	if _, exists := b.orders[o.ID]; exists {
		return nil, domain.ErrDuplicateOrderID
	}

	o.RemainingQuantity = o.Quantity
	o.Timestamp = b.clock.Now()

	switch o.Type {
	case domain.OrderTypeStop, domain.OrderTypeStopLimit:
		o.Status = domain.StatusPendingTrigger
		b.orders[o.ID] = o
		b.stops.add(o)
		return nil, nil

	case domain.OrderTypeLimit, domain.OrderTypeMarket:
		if o.TimeInForce == domain.FillOrKill && !b.fokSatisfiable(o) {
			return nil, domain.ErrFillOrKillUnfillable
		}
	}

	o.Status = domain.StatusNew
	b.orders[o.ID] = o

	var trades []domain.Trade
	b.matchAndTrigger(o, &trades)
	b.drainCascade(&trades)

	return trades, nil
}

// matchAndTrigger runs one matching pass for aggr (its direct crossing
// plus residual handling), then scans the stop registry against the
// trades that pass just produced (spec.md §4.4 step 1).
func (b *Book) matchAndTrigger(aggr *domain.Order, trades *[]domain.Trade) {
	before := len(*trades)
	b.cross(aggr, trades)
	b.restOrDiscard(aggr)

	newlyTriggered := b.stops.triggered((*trades)[before:])
	b.pending = append(b.pending, newlyTriggered...)
}

// drainCascade repeatedly takes the pending-triggered queue's current
// contents as a batch, clears it, and runs each through the Matcher,
// until the queue is empty after a batch completes (spec.md §4.4 steps
// 2–3). Each pass's own newly-triggered stops are appended back onto the
// queue by matchAndTrigger, so the loop terminates only once a whole
// batch produces no further triggers — the registry can only shrink, so
// this always terminates (spec.md §4.4 Termination).
//
// A promoted order carrying FillOrKill gets the same atomic pre-check
// Submit runs for a direct Limit/Market entry (SPEC_FULL.md §9 item 1):
// if the opposite ladder can't fill it in full, it is discarded with
// zero trades and never reaches cross(), rather than resting or
// partially filling like a GoodTillCancel residual would.
func (b *Book) drainCascade(trades *[]domain.Trade) {
	for len(b.pending) > 0 {
		batch := b.pending
		b.pending = nil

		for _, o := range batch {
			o.PromoteFromStop()

			if o.TimeInForce == domain.FillOrKill && !b.fokSatisfiable(o) {
				o.Status = domain.StatusDiscarded
				delete(b.orders, o.ID)
				continue
			}

			o.Status = domain.StatusNew
			b.matchAndTrigger(o, trades)
		}
	}
}

// Cancel removes orderID if it currently rests in a ladder PriceLevel or
// sits untriggered in the stop registry; it silently no-ops if the id is
// not live (spec.md §4.1, with the Open Question on registry cancel
// resolved per SPEC_FULL.md §9).
func (b *Book) Cancel(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return nil
	}

	if o.InLevel() {
		level := o.Level()
		ladder := b.ownLadder(o.Side)
		level.Remove(o)
		ladder.DropIfEmpty(level)
	} else {
		b.stops.remove(orderID)
	}

	o.Status = domain.StatusCancelled
	delete(b.orders, orderID)
	return nil
}

// Order returns the order currently known to the book by id — resting,
// pending-trigger, or still in the stop registry — or (nil, false) if no
// live order has that id. The Book is the sole owner of order state
// (spec.md invariant 1/2), so this is the only place an embedder can
// look one up.
func (b *Book) Order(orderID string) (*domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	return o, ok
}

// BestBid returns the best bid price and the aggregate remaining
// quantity resting at it, or (zero, 0, false) if the bid side is empty.
func (b *Book) BestBid() (price decimal.Decimal, qty int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	level, found := b.bids.Best()
	if !found {
		return decimal.Decimal{}, 0, false
	}
	return level.Price, level.TotalQuantity(), true
}

// BestAsk returns the best ask price and the aggregate remaining
// quantity resting at it, or (zero, 0, false) if the ask side is empty.
func (b *Book) BestAsk() (price decimal.Decimal, qty int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	level, found := b.asks.Best()
	if !found {
		return decimal.Decimal{}, 0, false
	}
	return level.Price, level.TotalQuantity(), true
}

// BidLevels returns a snapshot of up to n bid levels, best first
// (descending price). Level-summary views return snapshots, not live
// references (spec.md §6).
func (b *Book) BidLevels(n int) []LevelView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Levels(n)
}

// AskLevels returns a snapshot of up to n ask levels, best first
// (ascending price).
func (b *Book) AskLevels(n int) []LevelView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Levels(n)
}
