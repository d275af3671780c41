package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/service"
)

// OrderHandler binds order submission, lookup, and cancellation to
// service.Engine.
type OrderHandler struct {
	svc       *service.Engine
	validator *Validator
}

// NewOrderHandler builds an OrderHandler over svc.
func NewOrderHandler(svc *service.Engine) *OrderHandler {
	return &OrderHandler{svc: svc, validator: NewValidator()}
}

// submitOrderRequest is the JSON request body for POST
// /symbols/{symbol}/orders. Price is required for limit/stop_limit,
// stop_price for stop/stop_limit — the core engine's own Validate
// enforces that once Engine.Submit parses these into decimals.
type submitOrderRequest struct {
	OrderID     string `json:"order_id,omitempty"`
	TraderID    string `json:"trader_id" validate:"required"`
	Side        string `json:"side" validate:"required,oneof=buy sell"`
	Type        string `json:"type" validate:"required,oneof=limit market stop stop_limit"`
	TimeInForce string `json:"time_in_force" validate:"omitempty,oneof=gtc ioc fok"`
	Price       string `json:"price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
}

type tradeResponse struct {
	ID               int64  `json:"id"`
	AggressingID     string `json:"aggressing_id"`
	RestingID        string `json:"resting_id"`
	Symbol           string `json:"symbol"`
	Price            string `json:"price"`
	Quantity         int64  `json:"quantity"`
	ExecutedAtMillis int64  `json:"executed_at_millis"`
}

// orderResponse is the JSON representation of a domain.Order. Price and
// StopPrice are omitted for order types that don't carry them, instead
// of round-tripping zero.
type orderResponse struct {
	OrderID           string          `json:"order_id"`
	TraderID          string          `json:"trader_id"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	Type              string          `json:"type"`
	TimeInForce       string          `json:"time_in_force"`
	Price             string          `json:"price,omitempty"`
	StopPrice         string          `json:"stop_price,omitempty"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	Status            string          `json:"status"`
	Trades            []tradeResponse `json:"trades,omitempty"`
}

func buildOrderResponse(o *domain.Order, trades []domain.Trade) orderResponse {
	resp := orderResponse{
		OrderID:           o.ID,
		TraderID:          o.TraderID,
		Symbol:            o.Symbol,
		Side:              string(o.Side),
		Type:              string(o.Type),
		TimeInForce:       string(o.TimeInForce),
		Quantity:          o.Quantity,
		RemainingQuantity: o.RemainingQuantity,
		FilledQuantity:    o.FilledQuantity,
		Status:            string(o.Status),
	}
	if o.Price.IsPositive() {
		resp.Price = o.Price.String()
	}
	if o.StopPrice.IsPositive() {
		resp.StopPrice = o.StopPrice.String()
	}
	if len(trades) > 0 {
		resp.Trades = buildTradeResponses(trades)
	}
	return resp
}

func buildTradeResponses(trades []domain.Trade) []tradeResponse {
	out := make([]tradeResponse, len(trades))
	for i, tr := range trades {
		out[i] = tradeResponse{
			ID:               tr.ID,
			AggressingID:     tr.AggressingID,
			RestingID:        tr.RestingID,
			Symbol:           tr.Symbol,
			Price:            tr.Price.String(),
			Quantity:         tr.Quantity,
			ExecutedAtMillis: tr.ExecutedAtMillis,
		}
	}
	return out
}

// SubmitOrder handles POST /symbols/{symbol}/orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.validator.Validate(req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	tif := domain.TimeInForce(req.TimeInForce)
	if tif == "" {
		tif = domain.GoodTillCancel
	}

	order, trades, err := h.svc.Submit(service.SubmitRequest{
		ID:          req.OrderID,
		TraderID:    req.TraderID,
		Symbol:      symbol,
		Side:        domain.Side(req.Side),
		Type:        domain.OrderType(req.Type),
		TimeInForce: tif,
		Price:       req.Price,
		StopPrice:   req.StopPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order, trades))
}

// GetOrder handles GET /symbols/{symbol}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	orderID := chi.URLParam(r, "order_id")

	order, ok, err := h.svc.Order(symbol, orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order, nil))
}

// CancelOrder handles DELETE /symbols/{symbol}/orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	orderID := chi.URLParam(r, "order_id")

	_, ok, err := h.svc.Order(symbol, orderID)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}

	if err := h.svc.Cancel(symbol, orderID); err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	if ve, ok := err.(*domain.ValidationError); ok {
		WriteValidationError(w, ve)
		return
	}

	switch err {
	case domain.ErrSymbolNotFound:
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	case domain.ErrDuplicateOrderID:
		WriteError(w, http.StatusConflict, "duplicate_order_id", err.Error())
	case domain.ErrFillOrKillUnfillable:
		WriteError(w, http.StatusConflict, "fill_or_kill_unfillable", err.Error())
	case domain.ErrInvalidOrder:
		WriteError(w, http.StatusBadRequest, "invalid_order", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
