package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/lobengine/internal/analytics"
	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/notify"
	"github.com/efreitasn/lobengine/internal/service"
	"github.com/efreitasn/lobengine/internal/store"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router     http.Handler
	svc        *service.Engine
	dispatcher *notify.Dispatcher
}

func newTestEnv(symbols ...string) *testEnv {
	if len(symbols) == 0 {
		symbols = []string{"AAPL"}
	}
	trades := store.NewTradeTape()
	whStore := store.NewWebhookStore()
	dispatcher := notify.NewDispatcher(whStore, 5*time.Second)
	svc := service.NewEngine(symbols, &domain.TickingClock{}, trades, dispatcher)
	an := analytics.New(trades, 5*time.Minute, &domain.TickingClock{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(svc, an, dispatcher, logger)

	return &testEnv{router: router, svc: svc, dispatcher: dispatcher}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// submitLimitOrder submits a limit order via the API and returns the response.
func (env *testEnv) submitLimitOrder(t *testing.T, traderID, side, symbol, price string, qty int64) map[string]any {
	t.Helper()
	body := map[string]any{
		"trader_id": traderID,
		"side":      side,
		"type":      "limit",
		"price":     price,
		"quantity":  qty,
	}
	rr := env.doJSON(t, "POST", "/symbols/"+symbol+"/orders", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit limit order: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

// --- Healthz ---

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected application/json, got %s", ct)
	}
}

// --- Order Endpoints ---

func TestOrder_SubmitLimitBid_Success(t *testing.T) {
	env := newTestEnv()

	body := map[string]any{
		"trader_id": "buyer",
		"side":      "buy",
		"type":      "limit",
		"price":     "150.00",
		"quantity":  10,
	}
	rr := env.doJSON(t, "POST", "/symbols/AAPL/orders", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["type"] != "limit" {
		t.Fatalf("expected type=limit, got %v", resp["type"])
	}
	if resp["status"] != "resting" {
		t.Fatalf("expected status=resting, got %v", resp["status"])
	}
	if resp["price"] != "150" {
		t.Fatalf("expected price=150, got %v", resp["price"])
	}
}

func TestOrder_SubmitMarketBid_Success(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "150.00", 10)

	body := map[string]any{
		"trader_id": "buyer",
		"side":      "buy",
		"type":      "market",
		"quantity":  5,
	}
	rr := env.doJSON(t, "POST", "/symbols/AAPL/orders", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["type"] != "market" {
		t.Fatalf("expected type=market, got %v", resp["type"])
	}
	if resp["status"] != "filled" {
		t.Fatalf("expected status=filled, got %v", resp["status"])
	}
	if _, ok := resp["price"]; ok {
		t.Fatal("market order response should not include price")
	}
}

func TestOrder_Submit_ValidationErrors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"invalid type", map[string]any{
			"trader_id": "b1", "side": "buy", "type": "invalid", "price": "100", "quantity": 1,
		}},
		{"invalid side", map[string]any{
			"trader_id": "b1", "side": "sideways", "type": "limit", "price": "100", "quantity": 1,
		}},
		{"zero quantity", map[string]any{
			"trader_id": "b1", "side": "buy", "type": "limit", "price": "100", "quantity": 0,
		}},
		{"missing trader_id", map[string]any{
			"side": "buy", "type": "limit", "price": "100", "quantity": 1,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.doJSON(t, "POST", "/symbols/AAPL/orders", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestOrder_Submit_SymbolNotFound(t *testing.T) {
	env := newTestEnv("AAPL")
	body := map[string]any{
		"trader_id": "b1", "side": "buy", "type": "limit", "price": "100", "quantity": 1,
	}
	rr := env.doJSON(t, "POST", "/symbols/GOOG/orders", body)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrder_Get_Success(t *testing.T) {
	env := newTestEnv()
	order := env.submitLimitOrder(t, "b1", "buy", "AAPL", "100", 5)
	orderID := order["order_id"].(string)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/orders/"+orderID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["order_id"] != orderID {
		t.Fatalf("expected order_id=%s, got %v", orderID, resp["order_id"])
	}
}

func TestOrder_Get_NotFound(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/symbols/AAPL/orders/nonexistent", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOrder_Cancel_Success(t *testing.T) {
	env := newTestEnv()
	order := env.submitLimitOrder(t, "b1", "buy", "AAPL", "100", 5)
	orderID := order["order_id"].(string)

	rr := env.doJSON(t, "DELETE", "/symbols/AAPL/orders/"+orderID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["status"] != "cancelled" {
		t.Fatalf("expected status=cancelled, got %v", resp["status"])
	}
}

func TestOrder_Cancel_NotFound(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "DELETE", "/symbols/AAPL/orders/nonexistent", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// --- Market Endpoints ---

func TestMarket_GetPrice_NoTrades(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "GET", "/symbols/AAPL/price", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["has_price"] != false {
		t.Fatalf("expected has_price=false, got %v", resp["has_price"])
	}
}

func TestMarket_GetPrice_AfterTrade(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "150.0", 10)
	env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 10)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/price", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["current_price"] != "150" {
		t.Fatalf("expected current_price=150, got %v", resp["current_price"])
	}
}

func TestMarket_GetPrice_SymbolNotFound(t *testing.T) {
	env := newTestEnv("AAPL")
	rr := env.doJSON(t, "GET", "/symbols/UNKNOWN/price", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMarket_GetBook_Success(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "b1", "buy", "AAPL", "148.0", 10)
	env.submitLimitOrder(t, "b1", "sell", "AAPL", "152.0", 5)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/book", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["symbol"] != "AAPL" {
		t.Fatalf("expected symbol=AAPL, got %v", resp["symbol"])
	}
	if resp["spread"] != "4" {
		t.Fatalf("expected spread=4, got %v", resp["spread"])
	}
}

func TestMarket_GetBook_InvalidDepth(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "b1", "buy", "AAPL", "100.0", 1)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/book?depth=0", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.doJSON(t, "GET", "/symbols/AAPL/book?depth=51", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for depth=51, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMarket_GetQuote_Success(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "150.0", 50)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/quote?side=buy&quantity=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["fully_fillable"] != true {
		t.Fatalf("expected fully_fillable=true, got %v", resp["fully_fillable"])
	}
}

func TestMarket_GetQuote_MissingQuantity(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "b1", "buy", "AAPL", "100.0", 1)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/quote?side=buy", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// --- Webhook Endpoints ---

func TestWebhook_Upsert_Success(t *testing.T) {
	env := newTestEnv()

	body := map[string]any{
		"trader_id": "b1",
		"url":       "https://example.com/hook",
		"events":    []string{"trade.executed"},
	}
	rr := env.doJSON(t, "POST", "/webhooks", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.doJSON(t, "POST", "/webhooks", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-register, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWebhook_List_Success(t *testing.T) {
	env := newTestEnv()

	body := map[string]any{
		"trader_id": "b1",
		"url":       "https://example.com/hook",
		"events":    []string{"trade.executed"},
	}
	env.doJSON(t, "POST", "/webhooks", body)

	rr := env.doJSON(t, "GET", "/webhooks?trader_id=b1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	webhooks := resp["webhooks"].([]any)
	if len(webhooks) != 1 {
		t.Fatalf("expected 1 webhook, got %d", len(webhooks))
	}
}

func TestWebhook_Delete_Success(t *testing.T) {
	env := newTestEnv()

	body := map[string]any{
		"trader_id": "b1",
		"url":       "https://example.com/hook",
		"events":    []string{"trade.executed"},
	}
	rr := env.doJSON(t, "POST", "/webhooks", body)
	var createResp map[string]any
	decodeJSON(t, rr, &createResp)
	webhooks := createResp["webhooks"].([]any)
	whID := webhooks[0].(map[string]any)["webhook_id"].(string)

	rr = env.doJSON(t, "DELETE", "/webhooks/"+whID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWebhook_Delete_NotFound(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, "DELETE", "/webhooks/nonexistent", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// --- Matching Scenarios ---

func TestMatch_SamePrice(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "150.0", 10)
	resp := env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 10)

	if resp["status"] != "filled" {
		t.Fatalf("expected status=filled, got %v", resp["status"])
	}
	trades := resp["trades"].([]any)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	trade := trades[0].(map[string]any)
	if trade["price"] != "150" {
		t.Fatalf("expected trade price=150, got %v", trade["price"])
	}
	if trade["quantity"] != 10.0 {
		t.Fatalf("expected trade quantity=10, got %v", trade["quantity"])
	}
}

func TestMatch_NoMatch(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "155.0", 10)
	resp := env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 10)

	if resp["status"] != "resting" {
		t.Fatalf("expected status=resting, got %v", resp["status"])
	}
	if _, ok := resp["trades"]; ok {
		t.Fatal("expected no trades field when no trades occurred")
	}
}

func TestMatch_PriceGap(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "148.0", 10)
	resp := env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 10)

	trades := resp["trades"].([]any)
	trade := trades[0].(map[string]any)
	if trade["price"] != "148" {
		t.Fatalf("expected trade price=148 (resting price), got %v", trade["price"])
	}
}

func TestMatch_PartialFill(t *testing.T) {
	env := newTestEnv()
	env.submitLimitOrder(t, "seller", "sell", "AAPL", "150.0", 50)
	resp := env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 100)

	if resp["status"] != "resting" {
		t.Fatalf("expected status=resting (partially filled), got %v", resp["status"])
	}
	if resp["filled_quantity"] != 50.0 {
		t.Fatalf("expected filled_quantity=50, got %v", resp["filled_quantity"])
	}
	if resp["remaining_quantity"] != 50.0 {
		t.Fatalf("expected remaining_quantity=50, got %v", resp["remaining_quantity"])
	}
}

func TestMatch_ChronologicalPriority(t *testing.T) {
	env := newTestEnv()
	ask1 := env.submitLimitOrder(t, "seller1", "sell", "AAPL", "150.0", 10)
	env.submitLimitOrder(t, "seller2", "sell", "AAPL", "150.0", 10)

	resp := env.submitLimitOrder(t, "buyer", "buy", "AAPL", "150.0", 5)

	trades := resp["trades"].([]any)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	ask1ID := ask1["order_id"].(string)
	rr := env.doJSON(t, "GET", "/symbols/AAPL/orders/"+ask1ID, nil)
	var ask1State map[string]any
	decodeJSON(t, rr, &ask1State)
	if ask1State["filled_quantity"] != 5.0 {
		t.Fatalf("expected seller1 ask filled_quantity=5, got %v", ask1State["filled_quantity"])
	}
}

// --- Content-Type Validation ---

func TestContentType_MissingOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/webhooks", "", `{"trader_id":"b1","url":"https://example.com","events":["trade.executed"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestContentType_WrongOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/webhooks", "text/plain", `{"trader_id":"b1","url":"https://example.com","events":["trade.executed"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Response Format Validation ---

func TestResponseFormat_SnakeCaseFields(t *testing.T) {
	env := newTestEnv()
	order := env.submitLimitOrder(t, "b1", "buy", "AAPL", "100", 5)
	orderID := order["order_id"].(string)

	rr := env.doJSON(t, "GET", "/symbols/AAPL/orders/"+orderID, nil)
	body := rr.Body.String()

	for _, field := range []string{"order_id", "trader_id", "remaining_quantity", "filled_quantity"} {
		if !strings.Contains(body, fmt.Sprintf(`"%s"`, field)) {
			t.Fatalf("response missing snake_case field %q: %s", field, body)
		}
	}
	for _, bad := range []string{"orderId", "traderId", "remainingQuantity"} {
		if strings.Contains(body, bad) {
			t.Fatalf("response contains camelCase field %q: %s", bad, body)
		}
	}
}
