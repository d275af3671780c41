// Package notify dispatches trade and order lifecycle events to
// registered webhook subscribers. Adapted from the teacher's
// internal/service.WebhookService, generalized from broker-scoped
// notifications to trader-scoped ones and from two order lifecycle
// events to one (order.expired drops out: this engine has no order TTL
// subsystem, SPEC_FULL.md §1).
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/store"
)

// validEvents are the event types a subscription may be registered for.
var validEvents = map[string]bool{
	"trade.executed":  true,
	"order.cancelled": true,
}

// UpsertRequest is the input for webhook registration.
type UpsertRequest struct {
	TraderID string
	URL      string
	Events   []string
}

// Dispatcher manages webhook subscriptions and delivers event
// notifications to them.
type Dispatcher struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewDispatcher creates a Dispatcher backed by store, delivering webhook
// requests with the given per-request timeout.
func NewDispatcher(webhookStore *store.WebhookStore, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store: webhookStore,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upsert validates the request and creates or updates webhook
// subscriptions for (trader_id, event) pairs. Returns the resulting
// webhooks and whether any new subscription was created.
func (d *Dispatcher) Upsert(req UpsertRequest) ([]*domain.Webhook, bool, error) {
	if req.TraderID == "" {
		return nil, false, &domain.ValidationError{Message: "trader_id is required"}
	}
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	seen := make(map[string]bool, len(req.Events))
	deduped := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "unknown event type: " + event + ". Must be one of: trade.executed, order.cancelled",
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			TraderID:  req.TraderID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if d.store.Upsert(w) {
			anyCreated = true
			webhooks = append(webhooks, w)
			continue
		}
		if existing := d.store.GetByTraderEvent(req.TraderID, event); existing != nil {
			webhooks = append(webhooks, existing)
		}
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions for a trader.
func (d *Dispatcher) List(traderID string) []*domain.Webhook {
	return d.store.ListByTrader(traderID)
}

// Delete removes a webhook subscription by ID.
func (d *Dispatcher) Delete(webhookID string) error {
	return d.store.Delete(webhookID)
}

// tradeExecutedPayload is the JSON payload for trade.executed webhooks.
type tradeExecutedPayload struct {
	Event     string           `json:"event"`
	Timestamp string           `json:"timestamp"`
	Data      tradeExecutedData `json:"data"`
}

type tradeExecutedData struct {
	TradeID       int64  `json:"trade_id"`
	TraderID      string `json:"trader_id"`
	OrderID       string `json:"order_id"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	TradePrice    string `json:"trade_price"`
	TradeQuantity int64  `json:"trade_quantity"`
	OrderStatus   string `json:"order_status"`
	FilledQty     int64  `json:"order_filled_quantity"`
	RemainingQty  int64  `json:"order_remaining_quantity"`
}

// orderCancelledPayload is the JSON payload for order.cancelled webhooks.
type orderCancelledPayload struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      orderCancelData `json:"data"`
}

type orderCancelData struct {
	TraderID     string `json:"trader_id"`
	OrderID      string `json:"order_id"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Quantity     int64  `json:"quantity"`
	FilledQty    int64  `json:"filled_quantity"`
	RemainingQty int64  `json:"remaining_quantity"`
	Status       string `json:"status"`
}

// DispatchTradeExecuted notifies traderID's trade.executed subscription,
// if any, that order filled against trade. Fire-and-forget.
func (d *Dispatcher) DispatchTradeExecuted(traderID string, trade domain.Trade, order *domain.Order) {
	wh := d.store.GetByTraderEvent(traderID, "trade.executed")
	if wh == nil {
		return
	}

	payload := tradeExecutedPayload{
		Event:     "trade.executed",
		Timestamp: time.UnixMilli(trade.ExecutedAtMillis).UTC().Format(time.RFC3339),
		Data: tradeExecutedData{
			TradeID:       trade.ID,
			TraderID:      traderID,
			OrderID:       order.ID,
			Symbol:        order.Symbol,
			Side:          string(order.Side),
			TradePrice:    trade.Price.String(),
			TradeQuantity: trade.Quantity,
			OrderStatus:   string(order.Status),
			FilledQty:     order.FilledQuantity,
			RemainingQty:  order.RemainingQuantity,
		},
	}

	go d.deliver(wh, "trade.executed", payload)
}

// DispatchOrderCancelled notifies order.TraderID's order.cancelled
// subscription, if any. Fire-and-forget.
func (d *Dispatcher) DispatchOrderCancelled(order *domain.Order) {
	wh := d.store.GetByTraderEvent(order.TraderID, "order.cancelled")
	if wh == nil {
		return
	}

	payload := orderCancelledPayload{
		Event:     "order.cancelled",
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: orderCancelData{
			TraderID:     order.TraderID,
			OrderID:      order.ID,
			Symbol:       order.Symbol,
			Side:         string(order.Side),
			Quantity:     order.Quantity,
			FilledQty:    order.FilledQuantity,
			RemainingQty: order.RemainingQuantity,
			Status:       string(order.Status),
		},
	}

	go d.deliver(wh, "order.cancelled", payload)
}

// deliver sends the webhook payload via HTTP POST with the required
// headers. Errors are silently ignored (fire-and-forget).
func (d *Dispatcher) deliver(wh *domain.Webhook, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := d.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
