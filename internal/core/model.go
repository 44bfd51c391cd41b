package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. The pipeline statuses run
// fresh → assigned → packed → checked → dispatched; rejected absorbs from any
// non-terminal pipeline status. StatusPayment and StatusReturn mark pure
// ledger transactions that never carry physical goods.
type OrderStatus string

const (
	StatusFresh      OrderStatus = "fresh"
	StatusAssigned   OrderStatus = "assigned"
	StatusPacked     OrderStatus = "packed"
	StatusChecked    OrderStatus = "checked"
	StatusDispatched OrderStatus = "dispatched"
	StatusRejected   OrderStatus = "rejected"
	StatusPayment    OrderStatus = "payment"
	StatusReturn     OrderStatus = "return"
)

// InBilledSet reports whether an order in this status has a binding
// financial and stock impact.
func (s OrderStatus) InBilledSet() bool {
	return s == StatusChecked || s == StatusDispatched
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusDispatched || s == StatusRejected
}

// Role identifies an actor class. The three fulfillment roles each own exactly
// one forward step; RoleAdmin may advance any step, assign handlers, and reject.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePacker     Role = "packer"
	RoleChecker    Role = "checker"
	RoleDispatcher Role = "dispatcher"
)

// ItemIdentity is the brand/model/quality tuple that identifies an inventory
// item. Matching is case-insensitive.
type ItemIdentity struct {
	Brand   string
	Model   string
	Quality string
}

// Key returns the case-folded lookup key for the tuple.
func (id ItemIdentity) Key() string {
	return strings.ToLower(strings.TrimSpace(id.Brand)) + "|" +
		strings.ToLower(strings.TrimSpace(id.Model)) + "|" +
		strings.ToLower(strings.TrimSpace(id.Quality))
}

// FirmGroup is a set of customers sharing a displayed credit balance.
type FirmGroup struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is a credit-ledger account holder. Balance is signed: negative
// means the customer owes money.
type Customer struct {
	ID          int             `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	City        string          `json:"city"`
	Address     string          `json:"address"`
	Phone       string          `json:"phone"`
	FirmGroupID *int            `json:"firm_group_id,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InventoryItem is a stocked article identified by its identity tuple.
// Quantity is mutated only through the stock ledger and never goes below zero.
type InventoryItem struct {
	ID        int             `json:"id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Quality   string          `json:"quality"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Identity returns the item's identity tuple.
func (i InventoryItem) Identity() ItemIdentity {
	return ItemIdentity{Brand: i.Brand, Model: i.Model, Quality: i.Quality}
}

// Order is a customer order header. BilledAmount is the amount currently
// reflected in the customer's balance; it is non-zero only while the order sits
// in the billed set and resets to zero the moment the order leaves it via
// rejection.
type Order struct {
	ID             int             `json:"id"`
	CustomerID     int             `json:"customer_id"`
	CustomerCode   string          `json:"customer_code"` // joined from customers
	CustomerName   string          `json:"customer_name"` // joined from customers
	Status         OrderStatus     `json:"status"`
	AssignedToID   string          `json:"assigned_to_id"`
	AssignedToName string          `json:"assigned_to_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	BilledAmount   decimal.Decimal `json:"billed_amount"`
	Version        int             `json:"version"`
	Notes          string          `json:"notes"`
	Items          []OrderItem     `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	BilledAt       *time.Time      `json:"billed_at,omitempty"`
	DispatchedAt   *time.Time      `json:"dispatched_at,omitempty"`
	RejectedAt     *time.Time      `json:"rejected_at,omitempty"`
}

// CurrentTotal is Σ fulfillQty × finalPrice over the order's items — the only
// figure that ever feeds the ledgers.
func (o *Order) CurrentTotal() decimal.Decimal {
	var total decimal.Decimal
	for _, it := range o.Items {
		total = total.Add(it.FulfillQty.Mul(it.FinalPrice))
	}
	return total
}

// Dirty reports whether any item carries fulfillment or pricing edits that a
// bulk fulfill-all would overwrite.
func (o *Order) Dirty() bool {
	for _, it := range o.Items {
		if it.FulfillQty.IsPositive() || !it.FinalPrice.Equal(it.DisplayPrice) {
			return true
		}
	}
	return false
}

// OrderItem is one order line. DisplayPrice is the catalog reference;
// FinalPrice is the negotiated price. InventoryItemID is the steady-state join
// to stock; the identity tuple fields survive for intake and legacy backfill.
type OrderItem struct {
	ID              int             `json:"id"`
	OrderID         int             `json:"order_id"`
	InventoryItemID *int            `json:"inventory_item_id,omitempty"`
	Brand           string          `json:"brand"`
	Model           string          `json:"model"`
	Quality         string          `json:"quality"`
	OrderedQty      decimal.Decimal `json:"ordered_qty"`
	FulfillQty      decimal.Decimal `json:"fulfill_qty"`
	DisplayPrice    decimal.Decimal `json:"display_price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
}

// Identity returns the line's identity tuple.
func (i OrderItem) Identity() ItemIdentity {
	return ItemIdentity{Brand: i.Brand, Model: i.Model, Quality: i.Quality}
}

// LineTotal is fulfillQty × finalPrice.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.FulfillQty.Mul(i.FinalPrice)
}

// InventoryLog is one immutable stock-movement audit row. Sale rows carry a
// deterministic id so the reject path can reverse them by direct lookup.
type InventoryLog struct {
	LogID           string          `json:"log_id"`
	InventoryItemID int             `json:"inventory_item_id"`
	QuantityChange  decimal.Decimal `json:"quantity_change"`
	CurrentStock    decimal.Decimal `json:"current_stock"`
	Remark          string          `json:"remark"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DistributionLink is an externally shared catalog (portal) whitelisting
// inventory items by id.
type DistributionLink struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	ShareToken string    `json:"share_token"`
	ItemIDs    []int     `json:"item_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// GoodsReturnStatus is the lifecycle of a goods return record.
type GoodsReturnStatus string

const (
	ReturnDraft     GoodsReturnStatus = "draft"
	ReturnFinalized GoodsReturnStatus = "finalized"
)

// GoodsReturn is a reverse transaction: finalizing it credits the customer and
// restores stock for each returned line.
type GoodsReturn struct {
	ID           int               `json:"id"`
	CustomerID   int               `json:"customer_id"`
	CustomerName string            `json:"customer_name"` // joined from customers
	Status       GoodsReturnStatus `json:"status"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Items        []GoodsReturnItem `json:"items"`
	CreatedAt    time.Time         `json:"created_at"`
	FinalizedAt  *time.Time        `json:"finalized_at,omitempty"`
}

// GoodsReturnItem is one returned line.
type GoodsReturnItem struct {
	ID        int             `json:"id"`
	ReturnID  int             `json:"return_id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Quality   string          `json:"quality"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Identity returns the line's identity tuple.
func (i GoodsReturnItem) Identity() ItemIdentity {
	return ItemIdentity{Brand: i.Brand, Model: i.Model, Quality: i.Quality}
}

// StockRoomRemoval is a manually recorded physical removal of returned goods
// (e.g. sent out to a repair vendor), keyed by identity tuple.
type StockRoomRemoval struct {
	ID        int             `json:"id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Quality   string          `json:"quality"`
	Quantity  decimal.Decimal `json:"quantity"`
	Remark    string          `json:"remark"`
	CreatedAt time.Time       `json:"created_at"`
}

// StockRoomLevel is one row of the derived stock-room projection.
type StockRoomLevel struct {
	Brand    string          `json:"brand"`
	Model    string          `json:"model"`
	Quality  string          `json:"quality"`
	Quantity decimal.Decimal `json:"quantity"`
}

// LedgerTransaction is a pure balance entry outside the order pipeline:
// a payment received or a return credit.
type LedgerTransaction struct {
	ID         int             `json:"id"`
	CustomerID int             `json:"customer_id"`
	Kind       string          `json:"kind"` // PAYMENT or RETURN
	Amount     decimal.Decimal `json:"amount"`
	Remark     string          `json:"remark"`
	CreatedAt  time.Time       `json:"created_at"`
}
