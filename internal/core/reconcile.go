package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel errors surfaced by the coordinator.
var (
	// ErrDirtyFulfillment means a bulk fulfill-all would overwrite existing
	// fulfillment or pricing edits and the caller has not confirmed.
	ErrDirtyFulfillment = errors.New("order has fulfillment edits; confirm to overwrite")
	// ErrStaleVersion means the caller's view of the order is older than the
	// stored row; the caller must re-read and recompute.
	ErrStaleVersion = errors.New("order modified concurrently; re-read and retry")
	// ErrUnknownField is returned for item edits on fields the reconciliation
	// does not cover.
	ErrUnknownField = errors.New("unknown item field")
)

// Editable item fields.
const (
	FieldFulfillQty = "fulfill_qty"
	FieldFinalPrice = "final_price"
)

// Domain event types emitted after a committed reconciliation.
const (
	EventOrderBilled     = "OrderBilled"
	EventOrderRejected   = "OrderRejected"
	EventItemAdjusted    = "ItemAdjusted"
	EventStatusChanged   = "StatusChanged"
	EventReturnFinalized = "ReturnFinalized"
	EventStockDepleted   = "StockDepleted"
)

// SnapshotPublisher pushes committed order snapshots to live subscribers.
type SnapshotPublisher interface {
	PublishOrder(ctx context.Context, o *Order)
}

// EventPublisher emits domain events after a reconciliation commits.
type EventPublisher interface {
	Emit(ctx context.Context, eventType string, orderID int, payload any)
}

// Coordinator orchestrates every status transition and post-billing item edit:
// it computes the implied stock and balance deltas, applies them through the
// two ledgers and the audit recorder inside one transaction, and persists the
// order's new billed baseline. Post-commit side effects (portal sync, snapshot
// feed, event stream) are best-effort.
type Coordinator struct {
	pool    *pgxpool.Pool
	machine *StateMachine
	stock   *StockLedger
	credit  *CreditLedger
	audit   *AuditRecorder
	portal  *PortalSync
	feed    SnapshotPublisher
	events  EventPublisher
	log     *zap.Logger
}

// NewCoordinator wires the reconciliation coordinator. feed and events may be
// nil; portal may be nil when no shared catalogs exist.
func NewCoordinator(pool *pgxpool.Pool, stock *StockLedger, credit *CreditLedger,
	audit *AuditRecorder, portal *PortalSync, feed SnapshotPublisher,
	events EventPublisher, log *zap.Logger) *Coordinator {
	return &Coordinator{
		pool:    pool,
		machine: NewStateMachine(),
		stock:   stock,
		credit:  credit,
		audit:   audit,
		portal:  portal,
		feed:    feed,
		events:  events,
		log:     log,
	}
}

// editable reports whether an order's items may still be edited. Dispatched
// orders stay editable because post-billing corrections are the point of the
// delta path; rejected orders and pure ledger transactions are not.
func editable(s OrderStatus) bool {
	return s != StatusRejected && s != StatusPayment && s != StatusReturn
}

// checkVersion enforces the optimistic stamp: a caller who read version v may
// only write if the row is still at v. Zero disables the check.
func checkVersion(order *Order, expected int) error {
	if expected != 0 && order.Version != expected {
		return fmt.Errorf("%w: have version %d, caller read %d", ErrStaleVersion, order.Version, expected)
	}
	return nil
}

// lockOrder reads the order header FOR UPDATE and its items inside tx.
func (c *Coordinator) lockOrder(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error) {
	var o Order
	err := tx.QueryRow(ctx, `
		SELECT id, customer_id, status, assigned_to_id, assigned_to_name,
		       total_amount, billed_amount, version
		FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(
		&o.ID, &o.CustomerID, &o.Status, &o.AssignedToID, &o.AssignedToName,
		&o.TotalAmount, &o.BilledAmount, &o.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	items, err := fetchOrderItemsQ(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// writeIntent records the write-ahead intent row inside tx. The key is the
// dedup handle for the whole reconciliation; the per-row deterministic log ids
// make the apply itself idempotent.
func (c *Coordinator) writeIntent(ctx context.Context, tx pgx.Tx, key, kind string, orderID int, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode intent payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO reconcile_intents (intent_key, order_id, kind, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (intent_key) DO NOTHING
	`, key, orderID, kind, body)
	if err != nil {
		return fmt.Errorf("failed to write intent %s: %w", key, err)
	}
	return nil
}

// resolveItemStockTx returns the inventory item id a line maps to, preferring
// the foreign key and falling back to the identity tuple. A miss skips the
// stock side effect for that line only.
func (c *Coordinator) resolveItemStockTx(ctx context.Context, tx pgx.Tx, it OrderItem) (int, bool) {
	if it.InventoryItemID != nil {
		return *it.InventoryItemID, true
	}
	inv, err := c.stock.ResolveByIdentityTx(ctx, tx, it.Identity())
	if err != nil {
		c.log.Warn("stock adjustment skipped: no matching inventory item",
			zap.Int("order_id", it.OrderID),
			zap.String("brand", it.Brand), zap.String("model", it.Model), zap.String("quality", it.Quality))
		return 0, false
	}
	return inv.ID, true
}

// UpdateStatus is the sole entry point for status-driven reconciliation.
// explicitItems, when non-nil, carry the caller's freshest fulfillment
// quantities and prices and are persisted before any total is computed.
func (c *Coordinator) UpdateStatus(ctx context.Context, orderID int, newStatus OrderStatus,
	actor Role, assigneeID, assigneeName string, explicitItems []OrderItem) (*Order, error) {

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := c.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := c.machine.Validate(order.Status, newStatus, actor); err != nil {
		return nil, err
	}

	if len(explicitItems) > 0 {
		if err := c.applyExplicitItems(ctx, tx, order, explicitItems); err != nil {
			return nil, err
		}
	}

	var depleted []int
	effect := c.machine.Effect(order.Status, newStatus, order.BilledAmount.IsPositive())
	switch effect {
	case EffectBill:
		depleted, err = c.billTx(ctx, tx, order, newStatus)
	case EffectReverse:
		err = c.reverseTx(ctx, tx, order)
	}
	if err != nil {
		return nil, err
	}

	if assigneeID != "" {
		order.AssignedToID = assigneeID
		order.AssignedToName = assigneeName
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, assigned_to_id = $2, assigned_to_name = $3,
		    total_amount = $4, billed_amount = $5, version = version + 1,
		    updated_at = NOW(),
		    billed_at = CASE WHEN $6 THEN NOW() ELSE billed_at END,
		    dispatched_at = CASE WHEN $1 = 'dispatched' THEN NOW() ELSE dispatched_at END,
		    rejected_at = CASE WHEN $1 = 'rejected' THEN NOW() ELSE rejected_at END
		WHERE id = $7
	`, newStatus, order.AssignedToID, order.AssignedToName,
		order.CurrentTotal(), order.BilledAmount, effect == EffectBill, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation for order %d: %w", orderID, err)
	}

	c.afterCommit(ctx, orderID, depleted, statusEvent(effect), map[string]any{
		"status": newStatus,
		"billed": order.BilledAmount,
	})
	return c.GetOrder(ctx, orderID)
}

func statusEvent(effect TransitionEffect) string {
	switch effect {
	case EffectBill:
		return EventOrderBilled
	case EffectReverse:
		return EventOrderRejected
	default:
		return EventStatusChanged
	}
}

// applyExplicitItems overwrites stored fulfillment quantities and final prices
// with the caller-supplied ones, matched by item id.
func (c *Coordinator) applyExplicitItems(ctx context.Context, tx pgx.Tx, order *Order, explicit []OrderItem) error {
	byID := make(map[int]OrderItem, len(explicit))
	for _, e := range explicit {
		byID[e.ID] = e
	}
	for i := range order.Items {
		e, ok := byID[order.Items[i].ID]
		if !ok {
			continue
		}
		if e.FulfillQty.IsNegative() || e.FinalPrice.IsNegative() {
			return fmt.Errorf("item %d: negative fulfillment values rejected", e.ID)
		}
		order.Items[i].FulfillQty = e.FulfillQty
		order.Items[i].FinalPrice = e.FinalPrice
		_, err := tx.Exec(ctx,
			"UPDATE order_items SET fulfill_qty = $1, final_price = $2 WHERE id = $3 AND order_id = $4",
			e.FulfillQty, e.FinalPrice, e.ID, order.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply explicit item %d: %w", e.ID, err)
		}
	}
	return nil
}

// billTx runs the first entry into the billed set: deducts the full current
// total from the customer balance, deducts each line's fulfill quantity from
// stock, and writes one deterministic sale log row per shipped line. Returns
// the ids of items whose stock reached zero.
func (c *Coordinator) billTx(ctx context.Context, tx pgx.Tx, order *Order, trigger OrderStatus) ([]int, error) {
	total := order.CurrentTotal()

	if err := c.writeIntent(ctx, tx, fmt.Sprintf("bill-order-%d", order.ID), "bill", order.ID, map[string]any{
		"total":  total,
		"status": trigger,
	}); err != nil {
		return nil, err
	}

	if _, err := c.credit.ApplyDeltaTx(ctx, tx, order.CustomerID, total.Neg()); err != nil {
		return nil, fmt.Errorf("balance deduction failed: %w", err)
	}

	var depleted []int
	for _, it := range order.Items {
		if !it.FulfillQty.IsPositive() {
			continue
		}
		invID, ok := c.resolveItemStockTx(ctx, tx, it)
		if !ok {
			continue
		}
		newQty, err := c.stock.ApplyDeltaTx(ctx, tx, invID, it.FulfillQty.Neg())
		if err != nil {
			return nil, fmt.Errorf("stock deduction failed for item %d: %w", invID, err)
		}
		err = c.audit.AppendTx(ctx, tx, InventoryLog{
			LogID:           SaleLogID(order.ID, invID),
			InventoryItemID: invID,
			QuantityChange:  it.FulfillQty.Neg(),
			CurrentStock:    newQty,
			Remark:          fmt.Sprintf("Sold %s × %s/%s/%s — order #%d moved to %s", it.FulfillQty, it.Brand, it.Model, it.Quality, order.ID, trigger),
		})
		if err != nil {
			return nil, err
		}
		if !newQty.IsPositive() {
			depleted = append(depleted, invID)
		}
	}

	order.BilledAmount = total
	return depleted, nil
}

// reverseTx undoes a billed order on rejection: restores the stored billed
// amount (never a recomputed total) to the balance, restores each line's
// fulfill quantity to stock, and deletes the deterministic sale log rows so
// stale remaining-stock views cannot double-count.
func (c *Coordinator) reverseTx(ctx context.Context, tx pgx.Tx, order *Order) error {
	if err := c.writeIntent(ctx, tx, fmt.Sprintf("reject-order-%d", order.ID), "reverse", order.ID, map[string]any{
		"restored": order.BilledAmount,
	}); err != nil {
		return err
	}

	if _, err := c.credit.ApplyDeltaTx(ctx, tx, order.CustomerID, order.BilledAmount); err != nil {
		return fmt.Errorf("balance restore failed: %w", err)
	}

	for _, it := range order.Items {
		if !it.FulfillQty.IsPositive() {
			continue
		}
		invID, ok := c.resolveItemStockTx(ctx, tx, it)
		if !ok {
			continue
		}
		if _, err := c.stock.ApplyDeltaTx(ctx, tx, invID, it.FulfillQty); err != nil {
			return fmt.Errorf("stock restore failed for item %d: %w", invID, err)
		}
		if err := c.audit.DeleteTx(ctx, tx, SaleLogID(order.ID, invID)); err != nil {
			return err
		}
	}

	order.BilledAmount = decimal.Zero
	return nil
}

// UpdateItem is the sole entry point for single-field item edits, covering the
// billed-state delta path: only the difference between the new total and the
// stored billed amount ever reaches the balance, and a quantity edit moves
// stock by oldQty − newQty, never by the full new quantity.
// expectedVersion, when non-zero, must match the stored row's version stamp;
// a mismatch means the caller computed against a stale baseline and gets
// ErrStaleVersion instead of a double-applied delta.
func (c *Coordinator) UpdateItem(ctx context.Context, orderID, itemID int, field string, value decimal.Decimal, expectedVersion int) (*Order, error) {
	if field != FieldFulfillQty && field != FieldFinalPrice {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%s cannot be negative, got %s", field, value)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := c.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !editable(order.Status) {
		return nil, fmt.Errorf("order %d is %s; items can no longer be edited", orderID, order.Status)
	}
	if err := checkVersion(order, expectedVersion); err != nil {
		return nil, err
	}

	idx := -1
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("item %d not found on order %d", itemID, orderID)
	}
	item := &order.Items[idx]

	oldQty := item.FulfillQty
	switch field {
	case FieldFulfillQty:
		item.FulfillQty = value
	case FieldFinalPrice:
		item.FinalPrice = value
	}

	_, err = tx.Exec(ctx,
		"UPDATE order_items SET fulfill_qty = $1, final_price = $2 WHERE id = $3",
		item.FulfillQty, item.FinalPrice, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}

	newTotal := order.CurrentTotal()
	var depleted []int

	if order.Status.InBilledSet() {
		intentKey := fmt.Sprintf("adjust-order-%d-item-%d-%s", orderID, itemID, uuid.NewString())
		if err := c.writeIntent(ctx, tx, intentKey, "item-edit", orderID, map[string]any{
			"item_id": itemID, "field": field, "value": value,
		}); err != nil {
			return nil, err
		}

		// Balance moves by the difference against the billed baseline, not by
		// the full new total.
		balanceDelta := order.BilledAmount.Sub(newTotal)
		if !balanceDelta.IsZero() {
			if _, err := c.credit.ApplyDeltaTx(ctx, tx, order.CustomerID, balanceDelta); err != nil {
				return nil, fmt.Errorf("balance adjustment failed: %w", err)
			}
		}

		if field == FieldFulfillQty {
			qtyDelta := item.FulfillQty.Sub(oldQty) // positive delta subtracts stock
			if !qtyDelta.IsZero() {
				if invID, ok := c.resolveItemStockTx(ctx, tx, *item); ok {
					newStock, err := c.stock.ApplyDeltaTx(ctx, tx, invID, qtyDelta.Neg())
					if err != nil {
						return nil, fmt.Errorf("stock adjustment failed for item %d: %w", invID, err)
					}
					err = c.audit.AppendTx(ctx, tx, InventoryLog{
						LogID:           AdjustLogID(orderID, invID),
						InventoryItemID: invID,
						QuantityChange:  qtyDelta.Neg(),
						CurrentStock:    newStock,
						Remark:          fmt.Sprintf("Correction — order #%d fulfill qty %s → %s", orderID, oldQty, item.FulfillQty),
					})
					if err != nil {
						return nil, err
					}
					if !newStock.IsPositive() {
						depleted = append(depleted, invID)
					}
				}
			}
		}

		order.BilledAmount = newTotal
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET total_amount = $1, billed_amount = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3
	`, newTotal, order.BilledAmount, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit item edit for order %d: %w", orderID, err)
	}

	c.afterCommit(ctx, orderID, depleted, EventItemAdjusted, map[string]any{
		"item_id": itemID, "field": field, "value": value,
	})
	return c.GetOrder(ctx, orderID)
}

// FulfillAll resets every line to full fulfillment at catalog price. When the
// order carries fulfillment or pricing edits and confirm is false it refuses
// with ErrDirtyFulfillment, because the reset would discard those edits. On a
// billed order each line is reconciled by its per-item delta; re-running on an
// already fulfilled order yields a zero net delta on both ledgers.
func (c *Coordinator) FulfillAll(ctx context.Context, orderID int, confirm bool) (*Order, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := c.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !editable(order.Status) {
		return nil, fmt.Errorf("order %d is %s; items can no longer be edited", orderID, order.Status)
	}
	if order.Dirty() && !confirm {
		return nil, ErrDirtyFulfillment
	}

	billed := order.Status.InBilledSet()
	var depleted []int

	if billed {
		intentKey := fmt.Sprintf("fulfill-order-%d-%s", orderID, uuid.NewString())
		if err := c.writeIntent(ctx, tx, intentKey, "fulfill-all", orderID, nil); err != nil {
			return nil, err
		}
	}

	for i := range order.Items {
		item := &order.Items[i]
		oldQty := item.FulfillQty
		item.FulfillQty = item.OrderedQty
		item.FinalPrice = item.DisplayPrice

		_, err = tx.Exec(ctx,
			"UPDATE order_items SET fulfill_qty = $1, final_price = $2 WHERE id = $3",
			item.FulfillQty, item.FinalPrice, item.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to reset item %d: %w", item.ID, err)
		}

		if !billed {
			continue
		}
		qtyDelta := item.FulfillQty.Sub(oldQty)
		if qtyDelta.IsZero() {
			continue
		}
		invID, ok := c.resolveItemStockTx(ctx, tx, *item)
		if !ok {
			continue
		}
		newStock, err := c.stock.ApplyDeltaTx(ctx, tx, invID, qtyDelta.Neg())
		if err != nil {
			return nil, fmt.Errorf("stock adjustment failed for item %d: %w", invID, err)
		}
		err = c.audit.AppendTx(ctx, tx, InventoryLog{
			LogID:           AdjustLogID(orderID, invID),
			InventoryItemID: invID,
			QuantityChange:  qtyDelta.Neg(),
			CurrentStock:    newStock,
			Remark:          fmt.Sprintf("Bulk fulfill — order #%d qty %s → %s", orderID, oldQty, item.FulfillQty),
		})
		if err != nil {
			return nil, err
		}
		if !newStock.IsPositive() {
			depleted = append(depleted, invID)
		}
	}

	newTotal := order.CurrentTotal()
	if billed {
		balanceDelta := order.BilledAmount.Sub(newTotal)
		if !balanceDelta.IsZero() {
			if _, err := c.credit.ApplyDeltaTx(ctx, tx, order.CustomerID, balanceDelta); err != nil {
				return nil, fmt.Errorf("balance adjustment failed: %w", err)
			}
		}
		order.BilledAmount = newTotal
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET total_amount = $1, billed_amount = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3
	`, newTotal, order.BilledAmount, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit fulfill-all for order %d: %w", orderID, err)
	}

	c.afterCommit(ctx, orderID, depleted, EventItemAdjusted, map[string]any{"op": "fulfill_all"})
	return c.GetOrder(ctx, orderID)
}

// ReduceAllPrices subtracts a uniform amount from every line's final price,
// floor-clamped at zero, and reconciles the summed balance delta when the
// order is billed. Prices never move stock, so no inventory log is written.
func (c *Coordinator) ReduceAllPrices(ctx context.Context, orderID int, amount decimal.Decimal) (*Order, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("reduction amount must be positive, got %s", amount)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := c.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !editable(order.Status) {
		return nil, fmt.Errorf("order %d is %s; items can no longer be edited", orderID, order.Status)
	}

	for i := range order.Items {
		item := &order.Items[i]
		newPrice := item.FinalPrice.Sub(amount)
		if newPrice.IsNegative() {
			newPrice = decimal.Zero
		}
		if newPrice.Equal(item.FinalPrice) {
			continue
		}
		item.FinalPrice = newPrice
		_, err = tx.Exec(ctx, "UPDATE order_items SET final_price = $1 WHERE id = $2", newPrice, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update item %d price: %w", item.ID, err)
		}
	}

	newTotal := order.CurrentTotal()
	if order.Status.InBilledSet() {
		intentKey := fmt.Sprintf("pricecut-order-%d-%s", orderID, uuid.NewString())
		if err := c.writeIntent(ctx, tx, intentKey, "price-reduction", orderID, map[string]any{"amount": amount}); err != nil {
			return nil, err
		}
		balanceDelta := order.BilledAmount.Sub(newTotal)
		if !balanceDelta.IsZero() {
			if _, err := c.credit.ApplyDeltaTx(ctx, tx, order.CustomerID, balanceDelta); err != nil {
				return nil, fmt.Errorf("balance adjustment failed: %w", err)
			}
		}
		order.BilledAmount = newTotal
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET total_amount = $1, billed_amount = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3
	`, newTotal, order.BilledAmount, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit price reduction for order %d: %w", orderID, err)
	}

	c.afterCommit(ctx, orderID, nil, EventItemAdjusted, map[string]any{"op": "price_reduction", "amount": amount})
	return c.GetOrder(ctx, orderID)
}

// afterCommit runs the best-effort post-commit effects: portal visibility sync
// for depleted items, snapshot feed publish, and the event stream. None of
// them can fail the reconciliation that already committed.
func (c *Coordinator) afterCommit(ctx context.Context, orderID int, depleted []int, eventType string, payload map[string]any) {
	for _, itemID := range depleted {
		if c.portal != nil {
			c.portal.SyncDepleted(ctx, itemID)
		}
		if c.events != nil {
			c.events.Emit(ctx, EventStockDepleted, orderID, map[string]any{"item_id": itemID})
		}
	}
	if c.feed != nil {
		if order, err := c.GetOrder(ctx, orderID); err == nil {
			c.feed.PublishOrder(ctx, order)
		} else {
			c.log.Warn("feed snapshot publish skipped", zap.Int("order_id", orderID), zap.Error(err))
		}
	}
	if c.events != nil && eventType != "" {
		c.events.Emit(ctx, eventType, orderID, payload)
	}
}
