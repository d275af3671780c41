package engine

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/lobengine/internal/domain"
)

// priceNode is a single B-tree entry: one per occupied price on one side
// of the book, pointing at that price's intrusive FIFO queue. This is
// the same B-tree-of-entries shape as the teacher's OrderBook (see
// enzopsm-miniexchange/internal/engine/book.go's OrderBookEntry), keyed
// by price alone instead of by (price, order) since each level now owns
// its own queue of orders.
type priceNode struct {
	price decimal.Decimal
	level *domain.PriceLevel
}

// Ladder is an ordered map from price to PriceLevel for one side of the
// book (spec.md §3). bidLess/askLess below give it the two opposite
// iteration directions a bid ladder and ask ladder each need.
type Ladder struct {
	tree *btree.BTreeG[priceNode]
}

func bidLess(a, b priceNode) bool {
	// Descending: best bid (highest price) is Min().
	return a.price.GreaterThan(b.price)
}

func askLess(a, b priceNode) bool {
	// Ascending: best ask (lowest price) is Min().
	return a.price.LessThan(b.price)
}

const ladderDegree = 32

// NewBidLadder creates a price-descending ladder (best bid = Min()).
func NewBidLadder() *Ladder {
	return &Ladder{tree: btree.NewG[priceNode](ladderDegree, bidLess)}
}

// NewAskLadder creates a price-ascending ladder (best ask = Min()).
func NewAskLadder() *Ladder {
	return &Ladder{tree: btree.NewG[priceNode](ladderDegree, askLess)}
}

// Best returns the best level on this side (highest bid / lowest ask),
// or (nil, false) if the side is empty.
func (l *Ladder) Best() (*domain.PriceLevel, bool) {
	n, ok := l.tree.Min()
	if !ok {
		return nil, false
	}
	return n.level, true
}

// GetOrCreate returns the PriceLevel at price, creating and inserting an
// empty one if absent.
func (l *Ladder) GetOrCreate(price decimal.Decimal) *domain.PriceLevel {
	if n, ok := l.tree.Get(priceNode{price: price}); ok {
		return n.level
	}
	level := domain.NewPriceLevel(price)
	l.tree.ReplaceOrInsert(priceNode{price: price, level: level})
	return level
}

// DropIfEmpty removes the ladder's entry for level's price when level has
// become empty, preserving invariant 3 (no PriceLevel is empty).
func (l *Ladder) DropIfEmpty(level *domain.PriceLevel) {
	if level.Empty() {
		l.tree.Delete(priceNode{price: level.Price})
	}
}

// LevelView is a read-only snapshot of one price level, used by the
// level-summary views (spec.md §6), Quote, and the FillOrKill pre-check.
type LevelView struct {
	Price    decimal.Decimal
	Quantity int64
}

// Levels returns up to n levels from the best side inward, ordered
// bids-descending or asks-ascending per the ladder's own direction.
func (l *Ladder) Levels(n int) []LevelView {
	if n <= 0 {
		return nil
	}
	out := make([]LevelView, 0, n)
	l.tree.Ascend(func(n2 priceNode) bool {
		out = append(out, LevelView{Price: n2.price, Quantity: n2.level.TotalQuantity()})
		return len(out) < n
	})
	return out
}

// Len returns the number of occupied price levels on this side.
func (l *Ladder) Len() int {
	return l.tree.Len()
}
