package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/lobengine/internal/analytics"
	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/service"
)

// MarketHandler binds price, book-depth, and quote queries to
// analytics.Analytics, resolving the symbol's book through
// service.Engine first.
type MarketHandler struct {
	svc       *service.Engine
	analytics *analytics.Analytics
}

// NewMarketHandler builds a MarketHandler over svc and a.
func NewMarketHandler(svc *service.Engine, a *analytics.Analytics) *MarketHandler {
	return &MarketHandler{svc: svc, analytics: a}
}

type priceResponse struct {
	Symbol         string `json:"symbol"`
	CurrentPrice   string `json:"current_price,omitempty"`
	HasPrice       bool   `json:"has_price"`
	Window         string `json:"window"`
	TradesInWindow int    `json:"trades_in_window"`
	LastTradeAt    int64  `json:"last_trade_at,omitempty"`
}

type bookLevelResponse struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     string              `json:"spread,omitempty"`
	HasSpread  bool                `json:"has_spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

type quoteLevelResponse struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type quoteResponse struct {
	Symbol            string               `json:"symbol"`
	Side              string               `json:"side"`
	QuantityRequested int64                `json:"quantity_requested"`
	QuantityAvailable int64                `json:"quantity_available"`
	FullyFillable     bool                 `json:"fully_fillable"`
	EstimatedAvgPrice string               `json:"estimated_average_price,omitempty"`
	EstimatedTotal    string               `json:"estimated_total,omitempty"`
	HasEstimate       bool                 `json:"has_estimate"`
	PriceLevels       []quoteLevelResponse `json:"price_levels"`
	QuotedAt          string               `json:"quoted_at"`
}

// GetPrice handles GET /symbols/{symbol}/price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if !h.svc.HasSymbol(symbol) {
		WriteError(w, http.StatusNotFound, "symbol_not_found", "symbol not found")
		return
	}

	view := h.analytics.Price(symbol)
	resp := priceResponse{
		Symbol:         view.Symbol,
		HasPrice:       view.HasPrice,
		Window:         view.Window,
		TradesInWindow: view.TradesInWindow,
	}
	if view.HasPrice {
		resp.CurrentPrice = view.CurrentPrice.String()
	}
	if view.HasLastTrade {
		resp.LastTradeAt = view.LastTradeAt
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /symbols/{symbol}/book?depth=N.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if !h.svc.HasSymbol(symbol) {
		WriteError(w, http.StatusNotFound, "symbol_not_found", "symbol not found")
		return
	}

	depth := 10
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "depth must be a valid integer")
			return
		}
	}

	view, err := h.analytics.Book(symbol, h.svc.Book(symbol), depth)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	resp := bookResponse{
		Symbol:     view.Symbol,
		Bids:       toLevelResponses(view.Bids),
		Asks:       toLevelResponses(view.Asks),
		HasSpread:  view.HasSpread,
		SnapshotAt: view.SnapshotAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if view.HasSpread {
		resp.Spread = view.Spread.String()
	}

	WriteJSON(w, http.StatusOK, resp)
}

func toLevelResponses(levels []analytics.BookLevelView) []bookLevelResponse {
	out := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = bookLevelResponse{Price: l.Price.String(), Quantity: l.Quantity}
	}
	return out
}

// GetQuote handles GET /symbols/{symbol}/quote?side=&quantity=.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if !h.svc.HasSymbol(symbol) {
		WriteError(w, http.StatusNotFound, "symbol_not_found", "symbol not found")
		return
	}

	side := r.URL.Query().Get("side")
	quantity, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "quantity must be a positive integer")
		return
	}

	view, err := h.analytics.Quote(symbol, h.svc.Book(symbol), domain.Side(side), quantity)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	priceLevels := make([]quoteLevelResponse, len(view.PriceLevels))
	for i, pl := range view.PriceLevels {
		priceLevels[i] = quoteLevelResponse{Price: pl.Price.String(), Quantity: pl.Quantity}
	}

	resp := quoteResponse{
		Symbol:            view.Symbol,
		Side:              string(view.Side),
		QuantityRequested: view.QuantityRequested,
		QuantityAvailable: view.QuantityAvailable,
		FullyFillable:     view.FullyFillable,
		HasEstimate:       view.HasEstimate,
		PriceLevels:       priceLevels,
		QuotedAt:          view.QuotedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if view.HasEstimate {
		resp.EstimatedAvgPrice = view.EstimatedAvgPrice.String()
		resp.EstimatedTotal = view.EstimatedTotal.String()
	}

	WriteJSON(w, http.StatusOK, resp)
}

// mapMarketError maps analytics validation errors to HTTP responses.
func mapMarketError(w http.ResponseWriter, err error) {
	if ve, ok := err.(*domain.ValidationError); ok {
		WriteValidationError(w, ve)
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}
