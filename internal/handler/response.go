package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/lobengine/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // write error intentionally ignored in response helper
}

// errorResponse is the exchange's error envelope: a stable,
// machine-readable Code every client branches on, plus a Message meant
// for logs and humans, never for branching.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes errorResponse with the given status code and error
// code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// WriteValidationError writes the 400 every handler's field-level
// rejection takes: ve's message as-is, under the shared
// "invalid_request" code. order.go, market.go, and webhook.go each hit
// a *domain.ValidationError from a different originating call
// (Engine.Submit, Analytics.Book/Quote, Dispatcher.Upsert) but report it
// identically, so the mapping lives here once instead of three times.
func WriteValidationError(w http.ResponseWriter, ve *domain.ValidationError) {
	WriteError(w, http.StatusBadRequest, "invalid_request", ve.Error())
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}
