package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/lobengine/internal/domain"
)

// crosses reports whether an aggressing order can trade against a resting
// level priced at levelPrice, per spec.md §4.2 step 1: a Market order
// always crosses; a Limit order crosses only when its own price does not
// fail the crossing test against the level (Buy: aggr.Price >=
// levelPrice; Sell: aggr.Price <= levelPrice).
func crosses(aggr *domain.Order, levelPrice decimal.Decimal) bool {
	if aggr.Type != domain.OrderTypeLimit {
		return true
	}
	if aggr.Side == domain.SideBuy {
		return aggr.Price.GreaterThanOrEqual(levelPrice)
	}
	return aggr.Price.LessThanOrEqual(levelPrice)
}

// cross walks the opposite ladder from its best end, filling aggr
// against resting orders in strict FIFO order per level (spec.md §4.2).
// Every trade produced is appended to trades in generation order. cross
// never rests or discards aggr's residual — that's restOrDiscard's job.
func (b *Book) cross(aggr *domain.Order, trades *[]domain.Trade) {
	opposite := b.oppositeLadder(aggr.Side)

	for aggr.RemainingQuantity > 0 {
		level, ok := opposite.Best()
		if !ok {
			break
		}
		if !crosses(aggr, level.Price) {
			break
		}

		for aggr.RemainingQuantity > 0 && !level.Empty() {
			resting := level.Front()

			q := aggr.RemainingQuantity
			if resting.RemainingQuantity < q {
				q = resting.RemainingQuantity
			}

			b.tradeSeq++
			trade := domain.Trade{
				ID:               b.tradeSeq,
				AggressingID:     aggr.ID,
				RestingID:        resting.ID,
				Symbol:           b.symbol,
				Price:            level.Price, // execution price is always the resting order's price
				Quantity:         q,
				ExecutedAtMillis: b.clock.Now(),
			}

			level.Fill(resting, q)
			aggr.RemainingQuantity -= q
			aggr.FilledQuantity += q
			*trades = append(*trades, trade)

			if resting.RemainingQuantity == 0 {
				level.Remove(resting)
				resting.Status = domain.StatusFilled
				delete(b.orders, resting.ID)
			}
			// else: partial fill retains priority, stays at the head.
		}

		opposite.DropIfEmpty(level)
	}
}

// fokSatisfiable simulates whether aggr's full quantity could be filled
// by the opposite ladder as it currently stands, without mutating
// anything. Used to honor FillOrKill per SPEC_FULL.md §9: the order is
// rejected, atomically, rather than partially filled.
func (b *Book) fokSatisfiable(aggr *domain.Order) bool {
	opposite := b.oppositeLadder(aggr.Side)
	remaining := aggr.Quantity

	for _, lv := range opposite.Levels(opposite.Len()) {
		if aggr.Type == domain.OrderTypeLimit && !crosses(aggr, lv.Price) {
			break
		}
		remaining -= lv.Quantity
		if remaining <= 0 {
			return true
		}
	}
	return remaining <= 0
}

// restOrDiscard handles aggr after cross() returns: a fully-filled order
// is retired, a Limit residual under GoodTillCancel rests on its own
// ladder (spec.md §4.3), and every other residual (Market always,
// ImmediateOrCancel and FillOrKill Limits) is discarded (spec.md §4.2's
// Residual handling, generalized to honor SPEC_FULL.md §9's IOC
// decision). A FillOrKill aggressor is only ever handed to cross() after
// fokSatisfiable confirmed the ladder can fill it in full (Submit,
// drainCascade), so it should never actually reach this branch with a
// nonzero residual — the explicit exclusion here is what keeps that
// invariant true even if a future caller forgets the pre-check.
func (b *Book) restOrDiscard(aggr *domain.Order) {
	if aggr.RemainingQuantity == 0 {
		aggr.Status = domain.StatusFilled
		delete(b.orders, aggr.ID)
		return
	}

	if aggr.Type == domain.OrderTypeLimit && aggr.TimeInForce == domain.GoodTillCancel {
		level := b.ownLadder(aggr.Side).GetOrCreate(aggr.Price)
		level.Append(aggr)
		aggr.Status = domain.StatusResting
		return
	}

	aggr.Status = domain.StatusDiscarded
	delete(b.orders, aggr.ID)
}
