package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"distribution-backoffice/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain sentinels to HTTP status codes; anything
// unrecognized becomes a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrIllegalTransition):
		writeError(w, r, err.Error(), "ILLEGAL_TRANSITION", http.StatusConflict)
	case errors.Is(err, core.ErrStaleVersion):
		writeError(w, r, err.Error(), "STALE_VERSION", http.StatusConflict)
	case errors.Is(err, core.ErrDirtyFulfillment):
		writeError(w, r, err.Error(), "DIRTY_FULFILLMENT", http.StatusConflict)
	case errors.Is(err, core.ErrUnknownField):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrCustomerNotFound),
		errors.Is(err, core.ErrReturnNotFound),
		errors.Is(err, pgx.ErrNoRows):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
