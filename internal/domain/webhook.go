package domain

import "time"

// Webhook is a trader's subscription to one event type on one symbol-less,
// account-wide feed (embedder layer, SPEC_FULL.md §6 expansion). The core
// engine never references webhooks; they're dispatched by the service
// layer after a Book operation returns.
type Webhook struct {
	WebhookID string
	TraderID  string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
