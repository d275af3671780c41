package engine

import (
	"sort"

	"github.com/efreitasn/lobengine/internal/domain"
)

// stopRegistry holds untriggered Stop/StopLimit orders (spec.md §3's
// "Stop registry"), grounded on the separate stop-book collection in
// other_examples/Altilar-Labs-matchingo__backend.go
// (AppendToStopBook/RemoveFromStopBook next to the ladder sides) and the
// OrderTypeStop/OrderTypeStopLimit dispatch in
// other_examples/CryptonStudio-crypton-matching-engine__engine.go.
// Entries here are non-owning: the Book's order store is the sole owner
// (spec.md §5).
type stopRegistry struct {
	orders map[string]*domain.Order
}

func newStopRegistry() *stopRegistry {
	return &stopRegistry{orders: make(map[string]*domain.Order)}
}

func (r *stopRegistry) add(o *domain.Order) {
	r.orders[o.ID] = o
}

func (r *stopRegistry) remove(id string) {
	delete(r.orders, id)
}

// triggered returns, in a deterministic scan order (ascending order id —
// see SPEC_FULL.md §4.4 expansion), every registered order that any of
// tradePrices would trigger, removing each from the registry as it's
// found.
func (r *stopRegistry) triggered(tradePrices []domain.Trade) []*domain.Order {
	if len(r.orders) == 0 || len(tradePrices) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*domain.Order
	for _, id := range ids {
		o, ok := r.orders[id]
		if !ok {
			continue // already matched by an earlier trade price this scan
		}
		for _, t := range tradePrices {
			if o.TriggersOn(t.Price) {
				out = append(out, o)
				delete(r.orders, id)
				break
			}
		}
	}
	return out
}
