// Package service orchestrates the core engine across symbols for the
// HTTP binding: it routes requests to the right per-symbol engine.Book,
// assigns order ids, persists the trade tape, and dispatches webhooks.
// Adapted from the teacher's internal/service.OrderService, generalized
// from a single BookManager+Matcher pair with broker/expiry bookkeeping
// to a symbol-routed map of engine.Book, with no expiry subsystem.
package service

import (
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/engine"
	"github.com/efreitasn/lobengine/internal/notify"
	"github.com/efreitasn/lobengine/internal/store"
)

var (
	traderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex   = regexp.MustCompile(`^[A-Z]{1,10}$`)
)

// SubmitRequest is the input for order submission over the HTTP
// binding. ID is optional — Engine assigns one via google/uuid when
// empty.
type SubmitRequest struct {
	ID          string
	TraderID    string
	Symbol      string
	Side        domain.Side
	Type        domain.OrderType
	TimeInForce domain.TimeInForce
	Price       string // decimal string, required for Limit/StopLimit
	StopPrice   string // decimal string, required for Stop/StopLimit
	Quantity    int64
}

// Engine routes order submission, cancellation, and book queries to the
// right per-symbol engine.Book, creating books for known symbols on
// first use. It is the multi-symbol routing layer spec.md's §1 excludes
// from the core.
type Engine struct {
	mu      sync.RWMutex
	books   map[string]*engine.Book
	symbols map[string]bool

	clock  domain.Clock
	trades *store.TradeTape
	notify *notify.Dispatcher
}

// NewEngine creates an Engine serving the given symbols.
func NewEngine(symbols []string, clock domain.Clock, trades *store.TradeTape, dispatcher *notify.Dispatcher) *Engine {
	symSet := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		symSet[s] = true
	}
	return &Engine{
		books:   make(map[string]*engine.Book),
		symbols: symSet,
		clock:   clock,
		trades:  trades,
		notify:  dispatcher,
	}
}

// HasSymbol reports whether symbol is one this Engine serves.
func (e *Engine) HasSymbol(symbol string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.symbols[symbol]
}

// Book returns the engine.Book for symbol, creating it on first access.
// Callers must check HasSymbol first; Book panics on an unknown symbol
// rather than silently creating one outside the configured set.
func (e *Engine) Book(symbol string) *engine.Book {
	e.mu.RLock()
	b, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.books[symbol]; ok {
		return b
	}
	if !e.symbols[symbol] {
		panic("service: unknown symbol " + symbol)
	}
	b = engine.NewBook(symbol, e.clock)
	e.books[symbol] = b
	return b
}

// Submit validates req, builds the domain.Order, submits it to the
// symbol's book, persists any resulting trades to the trade tape, and
// dispatches trade.executed webhooks for each trade: always to the
// aggressing side, and to the resting side only when the resting order
// is still live in the book after the fill. A resting order that the
// fill completed gets no trade.executed notification (see dispatchTrade).
func (e *Engine) Submit(req SubmitRequest) (*domain.Order, []domain.Trade, error) {
	if !traderIDRegex.MatchString(req.TraderID) {
		return nil, nil, &domain.ValidationError{Message: "trader_id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if !e.HasSymbol(req.Symbol) {
		return nil, nil, domain.ErrSymbolNotFound
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	order := &domain.Order{
		ID:          id,
		TraderID:    req.TraderID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		TimeInForce: req.TimeInForce,
		Quantity:    req.Quantity,
	}

	if req.Price != "" {
		p, err := decimalFromString(req.Price)
		if err != nil {
			return nil, nil, &domain.ValidationError{Message: "price must be a valid decimal"}
		}
		order.Price = p
	}
	if req.StopPrice != "" {
		p, err := decimalFromString(req.StopPrice)
		if err != nil {
			return nil, nil, &domain.ValidationError{Message: "stop_price must be a valid decimal"}
		}
		order.StopPrice = p
	}

	book := e.Book(req.Symbol)
	trades, err := book.Submit(order)
	if err != nil {
		return nil, nil, err
	}

	for _, tr := range trades {
		e.trades.Append(req.Symbol, tr)
		e.dispatchTrade(order, tr)
	}

	return order, trades, nil
}

// Cancel removes orderID from symbol's book, if live, and dispatches an
// order.cancelled webhook.
func (e *Engine) Cancel(symbol, orderID string) error {
	if !e.HasSymbol(symbol) {
		return domain.ErrSymbolNotFound
	}

	book := e.Book(symbol)
	order, existed := book.Order(orderID)

	if err := book.Cancel(orderID); err != nil {
		return err
	}

	if existed && e.notify != nil {
		e.notify.DispatchOrderCancelled(order)
	}
	return nil
}

// Order looks up a live order by symbol and id.
func (e *Engine) Order(symbol, orderID string) (*domain.Order, bool, error) {
	if !e.HasSymbol(symbol) {
		return nil, false, domain.ErrSymbolNotFound
	}
	o, ok := e.Book(symbol).Order(orderID)
	return o, ok, nil
}

// dispatchTrade notifies both sides of a trade. The aggressing order is
// always available as aggr, the value just returned by the Book's
// Submit. The resting order may already have been retired from the
// Book's own map if the fill completed it (spec.md invariant 1/2); when
// so, there's no order snapshot left to report and that side is
// skipped rather than reconstructed.
func (e *Engine) dispatchTrade(aggr *domain.Order, tr domain.Trade) {
	if e.notify == nil {
		return
	}
	e.notify.DispatchTradeExecuted(aggr.TraderID, tr, aggr)

	book := e.Book(aggr.Symbol)
	if resting, ok := book.Order(tr.RestingID); ok {
		e.notify.DispatchTradeExecuted(resting.TraderID, tr, resting)
	}
}
