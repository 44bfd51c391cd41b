package app

import (
	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/core"
)

// CreateOrderRequest is the input for creating a new order.
type CreateOrderRequest struct {
	CustomerID int
	Notes      string
	Lines      []core.OrderLineInput
}

// UpdateStatusRequest is the input for a status transition. Items carries the
// caller's freshest per-item edits so a billing transition settles against
// what the screen showed, not a stale server copy.
type UpdateStatusRequest struct {
	OrderID      int
	NewStatus    core.OrderStatus
	Actor        core.Role
	AssigneeID   string
	AssigneeName string
	Items        []core.OrderItem
}

// UpdateItemRequest is the input for editing one order line. ExpectedVersion
// guards against writes from a stale snapshot; zero disables the check.
type UpdateItemRequest struct {
	OrderID         int
	ItemID          int
	Field           string // core.FieldFulfillQty or core.FieldFinalPrice
	Value           decimal.Decimal
	ExpectedVersion int
}

// ReducePricesRequest is the input for a flat price reduction across an order.
type ReducePricesRequest struct {
	OrderID int
	Amount  decimal.Decimal
}

// CreateCustomerRequest is the input for registering a customer account.
type CreateCustomerRequest struct {
	Code        string
	Name        string
	City        string
	Address     string
	Phone       string
	FirmGroupID *int
}

// RecordPaymentRequest is the input for posting a payment received.
type RecordPaymentRequest struct {
	CustomerID int
	Amount     decimal.Decimal
	Remark     string
}

// CreateItemRequest is the input for registering an inventory article.
type CreateItemRequest struct {
	Brand    string
	Model    string
	Quality  string
	Quantity decimal.Decimal
}

// CreateReturnRequest is the input for opening a draft goods return.
type CreateReturnRequest struct {
	CustomerID int
	Lines      []core.ReturnLineInput
}

// RecordRemovalRequest is the input for logging a stock-room removal.
type RecordRemovalRequest struct {
	Brand    string
	Model    string
	Quality  string
	Quantity decimal.Decimal
	Remark   string
}
