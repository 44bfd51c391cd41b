package web

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/app"
)

// listItems handles GET /api/items.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Items)
}

// createItem handles POST /api/items.
func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Brand    string          `json:"brand"`
		Model    string          `json:"model"`
		Quality  string          `json:"quality"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Brand == "" || body.Model == "" {
		writeError(w, r, "brand and model are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if body.Quantity.IsNegative() {
		writeError(w, r, "quantity must not be negative", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateItem(r.Context(), app.CreateItemRequest{
		Brand:    body.Brand,
		Model:    body.Model,
		Quality:  body.Quality,
		Quantity: body.Quantity,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result.Item)
}

// itemHistory handles GET /api/items/{id}/history.
func (h *Handler) itemHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetItemHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Logs)
}
