package web

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/core"
)

// listReturns handles GET /api/returns.
func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReturns(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Returns)
}

// getReturn handles GET /api/returns/{id}.
func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetReturn(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Return)
}

// createReturn handles POST /api/returns.
func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int `json:"customer_id"`
		Lines      []struct {
			Brand     string          `json:"brand"`
			Model     string          `json:"model"`
			Quality   string          `json:"quality"`
			Quantity  decimal.Decimal `json:"quantity"`
			UnitPrice decimal.Decimal `json:"unit_price"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CustomerID <= 0 || len(body.Lines) == 0 {
		writeError(w, r, "customer_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.CreateReturnRequest{CustomerID: body.CustomerID}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, core.ReturnLineInput{
			Brand:     l.Brand,
			Model:     l.Model,
			Quality:   l.Quality,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	result, err := h.svc.CreateReturn(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result.Return)
}

// finalizeReturn handles POST /api/returns/{id}/finalize.
func (h *Handler) finalizeReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.FinalizeReturn(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Return)
}

// deleteReturn handles DELETE /api/returns/{id}.
func (h *Handler) deleteReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteReturn(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stockRoom handles GET /api/stock-room.
func (h *Handler) stockRoom(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.StockRoomProjection(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Levels)
}

// recordRemoval handles POST /api/stock-room/removals.
func (h *Handler) recordRemoval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Brand    string          `json:"brand"`
		Model    string          `json:"model"`
		Quality  string          `json:"quality"`
		Quantity decimal.Decimal `json:"quantity"`
		Remark   string          `json:"remark"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if !body.Quantity.IsPositive() {
		writeError(w, r, "quantity must be positive", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	err := h.svc.RecordRemoval(r.Context(), app.RecordRemovalRequest{
		Brand:    body.Brand,
		Model:    body.Model,
		Quality:  body.Quality,
		Quantity: body.Quantity,
		Remark:   body.Remark,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// createLink handles POST /api/links.
func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeError(w, r, "name is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateLink(r.Context(), body.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result.Link)
}

// getLink handles GET /api/links/{id}.
func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetLink(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Link)
}

// whitelistItem handles POST /api/links/{id}/items.
func (h *Handler) whitelistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		InventoryItemID int `json:"inventory_item_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.InventoryItemID <= 0 {
		writeError(w, r, "inventory_item_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.WhitelistItem(r.Context(), id, body.InventoryItemID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
