package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/lobengine/internal/domain"
	"github.com/efreitasn/lobengine/internal/notify"
)

// WebhookHandler binds webhook subscription management to
// notify.Dispatcher.
type WebhookHandler struct {
	dispatcher *notify.Dispatcher
}

// NewWebhookHandler builds a WebhookHandler over dispatcher.
func NewWebhookHandler(dispatcher *notify.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

type upsertWebhookRequest struct {
	TraderID string   `json:"trader_id"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
}

type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	TraderID  string `json:"trader_id"`
	Event     string `json:"event"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Upsert handles POST /webhooks.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.dispatcher.Upsert(notify.UpsertRequest{
		TraderID: req.TraderID,
		URL:      req.URL,
		Events:   req.Events,
	})
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}

	WriteJSON(w, status, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// List handles GET /webhooks?trader_id=.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	traderID := r.URL.Query().Get("trader_id")
	if traderID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "trader_id query parameter is required")
		return
	}

	webhooks := h.dispatcher.List(traderID)
	WriteJSON(w, http.StatusOK, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "webhook_id")

	if err := h.dispatcher.Delete(webhookID); err != nil {
		mapWebhookError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildWebhookResponses(webhooks []*domain.Webhook) []webhookResponse {
	result := make([]webhookResponse, len(webhooks))
	for i, wh := range webhooks {
		result[i] = webhookResponse{
			WebhookID: wh.WebhookID,
			TraderID:  wh.TraderID,
			Event:     wh.Event,
			URL:       wh.URL,
			CreatedAt: wh.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			UpdatedAt: wh.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return result
}

// mapWebhookError maps domain errors to HTTP responses for webhook endpoints.
func mapWebhookError(w http.ResponseWriter, err error) {
	if ve, ok := err.(*domain.ValidationError); ok {
		WriteValidationError(w, ve)
		return
	}

	switch err {
	case domain.ErrWebhookNotFound:
		WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
