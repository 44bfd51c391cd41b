package app

import (
	"context"

	"distribution-backoffice/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListOrders returns orders, optionally filtered by status.
	ListOrders(ctx context.Context, status *core.OrderStatus) (*OrderListResult, error)

	// GetOrder returns a single order with its items.
	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)

	// CreateOrder creates a fresh order with catalog-priced lines.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	// UpdateStatus moves an order through the fulfillment pipeline or rejects
	// it, reconciling ledgers atomically when the billed boundary is crossed.
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*OrderResult, error)

	// UpdateItem edits one item's fulfillment quantity or final price,
	// applying ledger deltas when the order is already billed.
	UpdateItem(ctx context.Context, req UpdateItemRequest) (*OrderResult, error)

	// FulfillAll sets every item's fulfillment quantity to its ordered
	// quantity. Fails with ErrDirtyFulfillment unless confirm is set and the
	// order already carries edits.
	FulfillAll(ctx context.Context, orderID int, confirm bool) (*OrderResult, error)

	// ReduceAllPrices lowers every item's final price by a flat amount,
	// floored at zero.
	ReduceAllPrices(ctx context.Context, req ReducePricesRequest) (*OrderResult, error)

	// ListCustomers returns all customers.
	ListCustomers(ctx context.Context) (*CustomerListResult, error)

	// GetCustomer returns one customer with the balance the back office
	// displays: the firm-group sum when the customer belongs to a group.
	GetCustomer(ctx context.Context, customerID int) (*CustomerResult, error)

	// ResolveCustomer finds a customer by id, code, or name plus city and
	// returns it like GetCustomer.
	ResolveCustomer(ctx context.Context, ref, city string) (*CustomerResult, error)

	// CreateCustomer registers a new credit-ledger account.
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error)

	// RecordPayment posts a payment received against a customer's balance.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*CustomerResult, error)

	// ListItems returns the inventory catalog.
	ListItems(ctx context.Context) (*ItemListResult, error)

	// CreateItem registers a new inventory article.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error)

	// GetItemHistory returns the stock-movement audit trail for an item.
	GetItemHistory(ctx context.Context, inventoryItemID int) (*HistoryResult, error)

	// CreateReturn opens a draft goods return.
	CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnResult, error)

	// FinalizeReturn commits a draft return: credits the customer and
	// restores stock line by line.
	FinalizeReturn(ctx context.Context, returnID int) (*ReturnResult, error)

	// DeleteReturn removes a return record without touching the ledgers.
	DeleteReturn(ctx context.Context, returnID int) error

	// GetReturn returns one goods return with its lines.
	GetReturn(ctx context.Context, returnID int) (*ReturnResult, error)

	// ListReturns returns all goods returns.
	ListReturns(ctx context.Context) (*ReturnListResult, error)

	// RecordRemoval logs a physical removal from the stock room.
	RecordRemoval(ctx context.Context, req RecordRemovalRequest) error

	// StockRoomProjection folds finalized returns minus removals into current
	// stock-room levels.
	StockRoomProjection(ctx context.Context) (*StockRoomResult, error)

	// CreateLink creates a shareable distribution catalog link.
	CreateLink(ctx context.Context, name string) (*LinkResult, error)

	// WhitelistItem adds an inventory item to a distribution link.
	WhitelistItem(ctx context.Context, linkID, inventoryItemID int) error

	// GetLink returns a distribution link with its whitelisted item ids.
	GetLink(ctx context.Context, linkID int) (*LinkResult, error)
}
