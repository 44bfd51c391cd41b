package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/feed"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc  app.ApplicationService
	feed *feed.Publisher // nil when Redis is not configured
	log  *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, liveFeed *feed.Publisher, allowedOrigins []string, log *zap.Logger) http.Handler {
	h := &Handler{svc: svc, feed: liveFeed, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// Live feeds stream snapshots; body limit does not apply to them.
	r.Get("/api/orders/feed", h.ordersFeed)
	r.Get("/api/orders/{id}/feed", h.orderDetailFeed)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Orders
		r.Get("/api/orders", h.listOrders)
		r.Post("/api/orders", h.createOrder)
		r.Get("/api/orders/{id}", h.getOrder)
		r.Post("/api/orders/{id}/status", h.updateStatus)
		r.Patch("/api/orders/{id}/items/{itemID}", h.updateItem)
		r.Post("/api/orders/{id}/fulfill-all", h.fulfillAll)
		r.Post("/api/orders/{id}/reduce-prices", h.reduceAllPrices)

		// Customers and credit ledger
		r.Get("/api/customers", h.listCustomers)
		r.Post("/api/customers", h.createCustomer)
		r.Get("/api/customers/{id}", h.getCustomer)
		r.Post("/api/customers/{id}/payments", h.recordPayment)

		// Inventory
		r.Get("/api/items", h.listItems)
		r.Post("/api/items", h.createItem)
		r.Get("/api/items/{id}/history", h.itemHistory)

		// Goods returns and the stock room
		r.Get("/api/returns", h.listReturns)
		r.Post("/api/returns", h.createReturn)
		r.Get("/api/returns/{id}", h.getReturn)
		r.Post("/api/returns/{id}/finalize", h.finalizeReturn)
		r.Delete("/api/returns/{id}", h.deleteReturn)
		r.Get("/api/stock-room", h.stockRoom)
		r.Post("/api/stock-room/removals", h.recordRemoval)

		// Distribution links
		r.Post("/api/links", h.createLink)
		r.Get("/api/links/{id}", h.getLink)
		r.Post("/api/links/{id}/items", h.whitelistItem)
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts a numeric URL parameter. Returns false after writing a 400
// when the value is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
