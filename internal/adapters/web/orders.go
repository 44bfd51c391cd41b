package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/core"
)

// listOrders handles GET /api/orders?status=.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var statusPtr *core.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := core.OrderStatus(s)
		statusPtr = &status
	}
	result, err := h.svc.ListOrders(r.Context(), statusPtr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// getOrder handles GET /api/orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// createOrder handles POST /api/orders.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int    `json:"customer_id"`
		Notes      string `json:"notes"`
		Lines      []struct {
			Brand        string          `json:"brand"`
			Model        string          `json:"model"`
			Quality      string          `json:"quality"`
			OrderedQty   decimal.Decimal `json:"ordered_qty"`
			DisplayPrice decimal.Decimal `json:"display_price"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CustomerID <= 0 || len(body.Lines) == 0 {
		writeError(w, r, "customer_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.CreateOrderRequest{CustomerID: body.CustomerID, Notes: body.Notes}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, core.OrderLineInput{
			Brand:        l.Brand,
			Model:        l.Model,
			Quality:      l.Quality,
			OrderedQty:   l.OrderedQty,
			DisplayPrice: l.DisplayPrice,
		})
	}

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result.Order)
}

// updateStatus handles POST /api/orders/{id}/status. The optional items array
// carries the caller's latest per-line edits so a billing transition settles
// against what the caller last saw.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status       string `json:"status"`
		Actor        string `json:"actor"`
		AssigneeID   string `json:"assignee_id"`
		AssigneeName string `json:"assignee_name"`
		Items        []struct {
			ItemID     int             `json:"item_id"`
			FulfillQty decimal.Decimal `json:"fulfill_qty"`
			FinalPrice decimal.Decimal `json:"final_price"`
		} `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" || body.Actor == "" {
		writeError(w, r, "status and actor are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.UpdateStatusRequest{
		OrderID:      id,
		NewStatus:    core.OrderStatus(body.Status),
		Actor:        core.Role(body.Actor),
		AssigneeID:   body.AssigneeID,
		AssigneeName: body.AssigneeName,
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, core.OrderItem{
			ID:         it.ItemID,
			FulfillQty: it.FulfillQty,
			FinalPrice: it.FinalPrice,
		})
	}

	result, err := h.svc.UpdateStatus(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// updateItem handles PATCH /api/orders/{id}/items/{itemID}.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(w, r, "itemID")
	if !ok {
		return
	}
	var body struct {
		Field           string          `json:"field"`
		Value           decimal.Decimal `json:"value"`
		ExpectedVersion int             `json:"expected_version"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.UpdateItem(r.Context(), app.UpdateItemRequest{
		OrderID:         orderID,
		ItemID:          itemID,
		Field:           body.Field,
		Value:           body.Value,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// fulfillAll handles POST /api/orders/{id}/fulfill-all.
func (h *Handler) fulfillAll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.FulfillAll(r.Context(), id, body.Confirm)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// reduceAllPrices handles POST /api/orders/{id}/reduce-prices.
func (h *Handler) reduceAllPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if !body.Amount.IsPositive() {
		writeError(w, r, "amount must be positive", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ReduceAllPrices(r.Context(), app.ReducePricesRequest{OrderID: id, Amount: body.Amount})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// ordersFeed handles GET /api/orders/feed: a server-sent-event stream of
// order snapshots pushed over the Redis feed.
func (h *Handler) ordersFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeError(w, r, "live feed not configured", "FEED_UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	h.streamOrders(w, r, h.feed.ListenToOrders(r.Context()))
}

// orderDetailFeed handles GET /api/orders/{id}/feed.
func (h *Handler) orderDetailFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeError(w, r, "live feed not configured", "FEED_UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	h.streamOrders(w, r, h.feed.ListenToOrderDetails(r.Context(), id))
}

func (h *Handler) streamOrders(w http.ResponseWriter, r *http.Request, snapshots <-chan *core.Order) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, "streaming unsupported", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case order, open := <-snapshots:
			if !open {
				return
			}
			body, err := json.Marshal(order)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}
