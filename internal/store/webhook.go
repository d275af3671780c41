package store

import (
	"sync"

	"github.com/efreitasn/lobengine/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhook subscriptions.
// Primary index: webhook_id → webhook.
// Secondary index: trader_id → event → webhook.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
	byTrader map[string]map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byTrader: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by (trader_id,
// event). If a subscription already exists for that pair and w's URL
// differs, its URL and UpdatedAt are updated in place; with the same URL
// it is left untouched (the webhook_id remains stable either way). Returns
// true if a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byTrader[w.TraderID]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	s.webhooks[w.WebhookID] = w

	if s.byTrader[w.TraderID] == nil {
		s.byTrader[w.TraderID] = make(map[string]*domain.Webhook)
	}
	s.byTrader[w.TraderID][w.Event] = w

	return true
}

// Get retrieves a webhook by ID. It returns domain.ErrWebhookNotFound if
// the webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListByTrader returns all webhooks for a trader. Returns an empty slice
// if the trader has no subscriptions.
func (s *WebhookStore) ListByTrader(traderID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byTrader[traderID]
	if len(events) == 0 {
		return []*domain.Webhook{}
	}

	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		result = append(result, w)
	}
	return result
}

// Delete removes a webhook by ID. It returns domain.ErrWebhookNotFound if
// the webhook does not exist. Both indexes are cleaned up.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}

	delete(s.webhooks, id)

	if events, ok := s.byTrader[w.TraderID]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byTrader, w.TraderID)
		}
	}

	return nil
}

// GetByTraderEvent returns the webhook for a specific trader+event pair,
// or nil if no subscription exists.
func (s *WebhookStore) GetByTraderEvent(traderID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byTrader[traderID]
	if events == nil {
		return nil
	}
	return events[event]
}
