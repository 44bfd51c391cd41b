package app

import (
	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/core"
)

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.Order
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order
}

// CustomerResult is returned by single-customer operations. DisplayedBalance
// is the firm-group sum when the customer belongs to a group, otherwise the
// customer's own balance.
type CustomerResult struct {
	Customer         *core.Customer
	DisplayedBalance decimal.Decimal
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer
}

// ItemResult is returned by CreateItem.
type ItemResult struct {
	Item *core.InventoryItem
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []core.InventoryItem
}

// HistoryResult is returned by GetItemHistory.
type HistoryResult struct {
	Logs []core.InventoryLog
}

// ReturnResult is returned by goods-return operations.
type ReturnResult struct {
	Return *core.GoodsReturn
}

// ReturnListResult is returned by ListReturns.
type ReturnListResult struct {
	Returns []core.GoodsReturn
}

// StockRoomResult is returned by StockRoomProjection.
type StockRoomResult struct {
	Levels []core.StockRoomLevel
}

// LinkResult is returned by distribution link operations.
type LinkResult struct {
	Link *core.DistributionLink
}
