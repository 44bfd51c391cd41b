package web

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/core"
)

// listCustomers handles GET /api/customers.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Customers)
}

// getCustomer handles GET /api/customers/{id}. The displayed balance is the
// firm-group sum when the customer belongs to a group.
func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, customerPayload(result))
}

// createCustomer handles POST /api/customers.
func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		City        string `json:"city"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		FirmGroupID *int   `json:"firm_group_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || body.Name == "" {
		writeError(w, r, "code and name are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateCustomer(r.Context(), app.CreateCustomerRequest{
		Code:        body.Code,
		Name:        body.Name,
		City:        body.City,
		Address:     body.Address,
		Phone:       body.Phone,
		FirmGroupID: body.FirmGroupID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(customerPayload(result))
}

// recordPayment handles POST /api/customers/{id}/payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Amount decimal.Decimal `json:"amount"`
		Remark string          `json:"remark"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if !body.Amount.IsPositive() {
		writeError(w, r, "amount must be positive", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), app.RecordPaymentRequest{
		CustomerID: id,
		Amount:     body.Amount,
		Remark:     body.Remark,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, customerPayload(result))
}

// customerPayload flattens a CustomerResult into one JSON object carrying the
// customer plus the balance the back office actually displays.
func customerPayload(result *app.CustomerResult) any {
	return struct {
		*core.Customer
		DisplayedBalance decimal.Decimal `json:"displayed_balance"`
	}{result.Customer, result.DisplayedBalance}
}
