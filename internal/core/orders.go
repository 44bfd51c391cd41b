package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderLineInput is one requested line when creating an order.
type OrderLineInput struct {
	Brand        string
	Model        string
	Quality      string
	OrderedQty   decimal.Decimal
	DisplayPrice decimal.Decimal
}

// CreateOrder inserts a fresh order with its lines. Each line is joined to
// stock by identity tuple at intake; a line with no matching inventory item is
// kept with a null join and its stock side effects will be skipped later.
func (c *Coordinator) CreateOrder(ctx context.Context, customerID int, notes string, lines []OrderLineInput) (*Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must have at least one line")
	}
	for i, l := range lines {
		if !l.OrderedQty.IsPositive() {
			return nil, fmt.Errorf("line %d: ordered quantity must be positive, got %s", i+1, l.OrderedQty)
		}
		if l.DisplayPrice.IsNegative() {
			return nil, fmt.Errorf("line %d: display price cannot be negative", i+1)
		}
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", customerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check customer %d: %w", customerID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, customerID)
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status, notes)
		VALUES ($1, $2, $3)
		RETURNING id
	`, customerID, StatusFresh, notes).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for i, l := range lines {
		var invID *int
		item, err := c.stock.ResolveByIdentityTx(ctx, tx, ItemIdentity{Brand: l.Brand, Model: l.Model, Quality: l.Quality})
		switch {
		case err == nil:
			invID = &item.ID
		case errors.Is(err, ErrItemNotFound):
			c.log.Warn("order line has no matching inventory item",
				zap.Int("order_id", orderID),
				zap.String("brand", l.Brand), zap.String("model", l.Model), zap.String("quality", l.Quality))
		default:
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, inventory_item_id, brand, model, quality, ordered_qty, fulfill_qty, display_price, final_price)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
		`, orderID, invID, l.Brand, l.Model, l.Quality, l.OrderedQty, l.DisplayPrice, l.DisplayPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	return c.GetOrder(ctx, orderID)
}

const orderSelect = `
	SELECT o.id, o.customer_id, c.code, c.name, o.status,
	       o.assigned_to_id, o.assigned_to_name,
	       o.total_amount, o.billed_amount, o.version, o.notes,
	       o.created_at, o.updated_at, o.billed_at, o.dispatched_at, o.rejected_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerCode, &o.CustomerName, &o.Status,
		&o.AssignedToID, &o.AssignedToName,
		&o.TotalAmount, &o.BilledAmount, &o.Version, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.BilledAt, &o.DispatchedAt, &o.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder fetches an order with its lines.
func (c *Coordinator) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	o, err := scanOrder(c.pool.QueryRow(ctx, orderSelect+" WHERE o.id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	items, err := fetchOrderItemsQ(ctx, c.pool, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// ListOrders returns orders newest first, optionally filtered by status.
func (c *Coordinator) ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error) {
	query := orderSelect
	args := []any{}
	if status != nil {
		query += " WHERE o.status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY o.id DESC"

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CustomerID, &o.CustomerCode, &o.CustomerName, &o.Status,
			&o.AssignedToID, &o.AssignedToName,
			&o.TotalAmount, &o.BilledAmount, &o.Version, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt, &o.BilledAt, &o.DispatchedAt, &o.RejectedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type queryRunner interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func fetchOrderItemsQ(ctx context.Context, q queryRunner, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, inventory_item_id, brand, model, quality,
		       ordered_qty, fulfill_qty, display_price, final_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.InventoryItemID, &it.Brand, &it.Model, &it.Quality,
			&it.OrderedQty, &it.FulfillQty, &it.DisplayPrice, &it.FinalPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
