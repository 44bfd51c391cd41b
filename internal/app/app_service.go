package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"distribution-backoffice/internal/core"
)

type appService struct {
	pool        *pgxpool.Pool
	coordinator *core.Coordinator
	stock       *core.StockLedger
	credit      *core.CreditLedger
	audit       *core.AuditRecorder
	returns     *core.ReturnService
	portal      *core.PortalSync
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	coordinator *core.Coordinator,
	stock *core.StockLedger,
	credit *core.CreditLedger,
	audit *core.AuditRecorder,
	returns *core.ReturnService,
	portal *core.PortalSync,
) ApplicationService {
	return &appService{
		pool:        pool,
		coordinator: coordinator,
		stock:       stock,
		credit:      credit,
		audit:       audit,
		returns:     returns,
		portal:      portal,
	}
}

func (s *appService) ListOrders(ctx context.Context, status *core.OrderStatus) (*OrderListResult, error) {
	orders, err := s.coordinator.ListOrders(ctx, status)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	order, err := s.coordinator.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	order, err := s.coordinator.CreateOrder(ctx, req.CustomerID, req.Notes, req.Lines)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*OrderResult, error) {
	order, err := s.coordinator.UpdateStatus(ctx, req.OrderID, req.NewStatus,
		req.Actor, req.AssigneeID, req.AssigneeName, req.Items)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*OrderResult, error) {
	order, err := s.coordinator.UpdateItem(ctx, req.OrderID, req.ItemID, req.Field, req.Value, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) FulfillAll(ctx context.Context, orderID int, confirm bool) (*OrderResult, error) {
	order, err := s.coordinator.FulfillAll(ctx, orderID, confirm)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ReduceAllPrices(ctx context.Context, req ReducePricesRequest) (*OrderResult, error) {
	order, err := s.coordinator.ReduceAllPrices(ctx, req.OrderID, req.Amount)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListCustomers(ctx context.Context) (*CustomerListResult, error) {
	customers, err := s.credit.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) GetCustomer(ctx context.Context, customerID int) (*CustomerResult, error) {
	customer, err := s.credit.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	displayed, err := s.credit.DisplayedBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: customer, DisplayedBalance: displayed}, nil
}

func (s *appService) ResolveCustomer(ctx context.Context, ref, city string) (*CustomerResult, error) {
	customer, err := s.credit.Resolve(ctx, ref, city)
	if err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, customer.ID)
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error) {
	customer, err := s.credit.CreateCustomer(ctx, req.Code, req.Name, req.City, req.Address, req.Phone, req.FirmGroupID)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: customer, DisplayedBalance: customer.Balance}, nil
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*CustomerResult, error) {
	if _, err := s.credit.RecordTransaction(ctx, req.CustomerID, "PAYMENT", req.Amount, req.Remark); err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, req.CustomerID)
}

func (s *appService) ListItems(ctx context.Context) (*ItemListResult, error) {
	items, err := s.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error) {
	item, err := s.stock.CreateItem(ctx, req.Brand, req.Model, req.Quality, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &ItemResult{Item: item}, nil
}

func (s *appService) GetItemHistory(ctx context.Context, inventoryItemID int) (*HistoryResult, error) {
	logs, err := s.audit.History(ctx, inventoryItemID)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Logs: logs}, nil
}

func (s *appService) CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnResult, error) {
	ret, err := s.returns.CreateReturn(ctx, req.CustomerID, req.Lines)
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: ret}, nil
}

func (s *appService) FinalizeReturn(ctx context.Context, returnID int) (*ReturnResult, error) {
	ret, err := s.returns.FinalizeReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: ret}, nil
}

func (s *appService) DeleteReturn(ctx context.Context, returnID int) error {
	return s.returns.DeleteReturn(ctx, returnID)
}

func (s *appService) GetReturn(ctx context.Context, returnID int) (*ReturnResult, error) {
	ret, err := s.returns.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: ret}, nil
}

func (s *appService) ListReturns(ctx context.Context) (*ReturnListResult, error) {
	returns, err := s.returns.ListReturns(ctx)
	if err != nil {
		return nil, err
	}
	return &ReturnListResult{Returns: returns}, nil
}

func (s *appService) RecordRemoval(ctx context.Context, req RecordRemovalRequest) error {
	id := core.ItemIdentity{Brand: req.Brand, Model: req.Model, Quality: req.Quality}
	_, err := s.returns.RecordRemoval(ctx, id, req.Quantity, req.Remark)
	return err
}

func (s *appService) StockRoomProjection(ctx context.Context) (*StockRoomResult, error) {
	levels, err := s.returns.StockRoomProjection(ctx)
	if err != nil {
		return nil, err
	}
	return &StockRoomResult{Levels: levels}, nil
}

func (s *appService) CreateLink(ctx context.Context, name string) (*LinkResult, error) {
	link, err := s.portal.CreateLink(ctx, name)
	if err != nil {
		return nil, err
	}
	return &LinkResult{Link: link}, nil
}

func (s *appService) WhitelistItem(ctx context.Context, linkID, inventoryItemID int) error {
	return s.portal.WhitelistItem(ctx, linkID, inventoryItemID)
}

func (s *appService) GetLink(ctx context.Context, linkID int) (*LinkResult, error) {
	link, err := s.portal.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return &LinkResult{Link: link}, nil
}
