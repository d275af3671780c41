package domain

import "errors"

// Sentinel errors surfaced by the engine's public interface (spec.md §7).
// Internal invariants are kept by construction and are not checked at
// run time; a violation is never reported through these.
var (
	ErrInvalidOrder     = errors.New("invalid_order")
	ErrDuplicateOrderID = errors.New("duplicate_order_id")

	// ErrFillOrKillUnfillable is returned by Submit when a FillOrKill
	// order's full quantity cannot be filled immediately (SPEC_FULL.md
	// §9): the order is rejected atomically, nothing is mutated.
	ErrFillOrKillUnfillable = errors.New("fill_or_kill_unfillable")

	// ErrSymbolNotFound, ErrWebhookNotFound are embedder-layer errors
	// (SPEC_FULL.md §7 expansion); the core engine never returns them.
	ErrSymbolNotFound  = errors.New("symbol_not_found")
	ErrWebhookNotFound = errors.New("webhook_not_found")
)

// ValidationError represents an embedder-layer request validation
// failure, distinct from the core engine's sentinel errors.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
