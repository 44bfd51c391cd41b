package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"distribution-backoffice/internal/core"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE reconcile_intents, ledger_transactions, stock_room_removals,
			goods_return_items, goods_returns, distribution_link_items, distribution_links,
			inventory_logs, order_items, orders, inventory_items, customers, firm_groups
			RESTART IDENTITY CASCADE;

		INSERT INTO customers (id, code, name, city) VALUES
			(1, 'C-001', 'Sharma Traders', 'Pune'),
			(2, 'C-002', 'Mehta & Sons', 'Pune');

		INSERT INTO inventory_items (id, brand, model, quality, quantity) VALUES
			(1, 'Acme', 'X100', 'A', 50),
			(2, 'Bolt', 'B2', 'B', 5);

		SELECT setval('customers_id_seq', 10);
		SELECT setval('inventory_items_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newCoordinator(pool *pgxpool.Pool) *core.Coordinator {
	log := zap.NewNop()
	stock := core.NewStockLedger(pool)
	credit := core.NewCreditLedger(pool)
	audit := core.NewAuditRecorder(pool)
	return core.NewCoordinator(pool, stock, credit, audit, nil, nil, nil, log)
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func customerBalance(t *testing.T, pool *pgxpool.Pool, id int) decimal.Decimal {
	t.Helper()
	var b decimal.Decimal
	if err := pool.QueryRow(context.Background(),
		"SELECT balance FROM customers WHERE id = $1", id).Scan(&b); err != nil {
		t.Fatalf("Failed to read balance: %v", err)
	}
	return b
}

func itemStock(t *testing.T, pool *pgxpool.Pool, id int) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	if err := pool.QueryRow(context.Background(),
		"SELECT quantity FROM inventory_items WHERE id = $1", id).Scan(&q); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	return q
}

func saleLogExists(t *testing.T, pool *pgxpool.Pool, orderID, itemID int) bool {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM inventory_logs WHERE log_id = $1",
		core.SaleLogID(orderID, itemID)).Scan(&n); err != nil {
		t.Fatalf("Failed to count sale logs: %v", err)
	}
	return n > 0
}

// createBilledOrder creates an order for customer 1 against inventory item 1
// (10 × 100), fulfills it in full, and walks it into checked.
func createBilledOrder(t *testing.T, c *core.Coordinator) *core.Order {
	t.Helper()
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", OrderedQty: dec(10), DisplayPrice: dec(100)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(10), 0); err != nil {
		t.Fatalf("Setting fulfill qty failed: %v", err)
	}

	for _, next := range []core.OrderStatus{core.StatusAssigned, core.StatusPacked, core.StatusChecked} {
		if _, err := c.UpdateStatus(ctx, order.ID, next, core.RoleAdmin, "", "", nil); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	order, err = c.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	return order
}

func TestReconcile_BillAdjustReject(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order := createBilledOrder(t, c)

	// Billing: balance −1000, stock 50 → 40, billed baseline 1000.
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-1000)) {
		t.Errorf("balance after billing = %s, want -1000", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(40)) {
		t.Errorf("stock after billing = %s, want 40", got)
	}
	if !order.BilledAmount.Equal(dec(1000)) {
		t.Errorf("billed amount = %s, want 1000", order.BilledAmount)
	}
	if !saleLogExists(t, pool, order.ID, 1) {
		t.Error("sale log row missing after billing")
	}

	// Quantity 10 → 8 on a billed order: balance moves by the delta (+200),
	// stock moves by +2, never by the full new quantity.
	order, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(8), 0)
	if err != nil {
		t.Fatalf("Billed-state edit failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-800)) {
		t.Errorf("balance after edit = %s, want -800", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(42)) {
		t.Errorf("stock after edit = %s, want 42", got)
	}
	if !order.BilledAmount.Equal(dec(800)) {
		t.Errorf("billed baseline after edit = %s, want 800", order.BilledAmount)
	}

	// Rejection restores the stored billed amount, restocks, and deletes the
	// sale log so remaining-stock views cannot double-count.
	order, err = c.UpdateStatus(ctx, order.ID, core.StatusRejected, core.RoleAdmin, "", "", nil)
	if err != nil {
		t.Fatalf("Rejection failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(0)) {
		t.Errorf("balance after rejection = %s, want 0", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(50)) {
		t.Errorf("stock after rejection = %s, want 50", got)
	}
	if !order.BilledAmount.IsZero() {
		t.Errorf("billed amount after rejection = %s, want 0", order.BilledAmount)
	}
	if saleLogExists(t, pool, order.ID, 1) {
		t.Error("sale log row should be deleted on rejection")
	}
}

func TestReconcile_DispatchDoesNotRebill(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order := createBilledOrder(t, c)

	if _, err := c.UpdateStatus(ctx, order.ID, core.StatusDispatched, core.RoleDispatcher, "", "", nil); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-1000)) {
		t.Errorf("balance after dispatch = %s, want -1000 (no second deduction)", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(40)) {
		t.Errorf("stock after dispatch = %s, want 40 (no second deduction)", got)
	}
}

func TestReconcile_IllegalTransitionLeavesLedgersUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", OrderedQty: dec(10), DisplayPrice: dec(100)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(10), 0); err != nil {
		t.Fatalf("Setting fulfill qty failed: %v", err)
	}

	// fresh → checked skips the pipeline: no billing may occur.
	_, err = c.UpdateStatus(ctx, order.ID, core.StatusChecked, core.RoleAdmin, "", "", nil)
	if !errors.Is(err, core.ErrIllegalTransition) {
		t.Fatalf("Expected ErrIllegalTransition, got %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.IsZero() {
		t.Errorf("balance moved on an illegal transition: %s", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(50)) {
		t.Errorf("stock moved on an illegal transition: %s", got)
	}
}

func TestReconcile_StockFloorsAtZero(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	// Item 2 holds 5 units; billing 10 clamps stock at zero rather than going
	// negative, while the balance still reflects the full billed total.
	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Bolt", Model: "B2", Quality: "B", OrderedQty: dec(10), DisplayPrice: dec(20)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(10), 0); err != nil {
		t.Fatalf("Setting fulfill qty failed: %v", err)
	}
	for _, next := range []core.OrderStatus{core.StatusAssigned, core.StatusPacked, core.StatusChecked} {
		if _, err := c.UpdateStatus(ctx, order.ID, next, core.RoleAdmin, "", "", nil); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	if got := itemStock(t, pool, 2); !got.IsZero() {
		t.Errorf("stock = %s, want 0 (clamped)", got)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-200)) {
		t.Errorf("balance = %s, want -200", got)
	}
}

func TestReconcile_FulfillAll(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order := createBilledOrder(t, c)

	// The order carries fulfillment edits, so an unconfirmed bulk fulfill must
	// refuse rather than silently overwrite them.
	if _, err := c.FulfillAll(ctx, order.ID, false); !errors.Is(err, core.ErrDirtyFulfillment) {
		t.Fatalf("Expected ErrDirtyFulfillment, got %v", err)
	}

	// Confirmed: already fully fulfilled at display price, so the reset is a
	// net zero on both ledgers.
	if _, err := c.FulfillAll(ctx, order.ID, true); err != nil {
		t.Fatalf("Confirmed fulfill-all failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-1000)) {
		t.Errorf("balance after no-op fulfill-all = %s, want -1000", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(40)) {
		t.Errorf("stock after no-op fulfill-all = %s, want 40", got)
	}

	// Drop the quantity, then bulk-fulfill back up: each step reconciles by
	// delta and the end state matches full fulfillment.
	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(4), 0); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(46)) {
		t.Errorf("stock after dropping to 4 = %s, want 46", got)
	}
	if _, err := c.FulfillAll(ctx, order.ID, true); err != nil {
		t.Fatalf("Fulfill-all failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-1000)) {
		t.Errorf("balance after refill = %s, want -1000", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(40)) {
		t.Errorf("stock after refill = %s, want 40", got)
	}
}

func TestReconcile_ReduceAllPricesFloorsAtZero(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", OrderedQty: dec(2), DisplayPrice: dec(100)},
		{Brand: "Bolt", Model: "B2", Quality: "B", OrderedQty: dec(1), DisplayPrice: dec(20)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	for _, it := range order.Items {
		if _, err := c.UpdateItem(ctx, order.ID, it.ID, core.FieldFulfillQty, it.OrderedQty, 0); err != nil {
			t.Fatalf("Setting fulfill qty failed: %v", err)
		}
	}
	for _, next := range []core.OrderStatus{core.StatusAssigned, core.StatusPacked, core.StatusChecked} {
		if _, err := c.UpdateStatus(ctx, order.ID, next, core.RoleAdmin, "", "", nil); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}
	// Billed: 2×100 + 1×20 = 220.
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-220)) {
		t.Fatalf("balance after billing = %s, want -220", got)
	}

	// Reduce by 50: 100 → 50, 20 floors at 0. New total 100; delta +120.
	order, err = c.ReduceAllPrices(ctx, order.ID, dec(50))
	if err != nil {
		t.Fatalf("ReduceAllPrices failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-100)) {
		t.Errorf("balance after reduction = %s, want -100", got)
	}
	if !order.BilledAmount.Equal(dec(100)) {
		t.Errorf("billed baseline after reduction = %s, want 100", order.BilledAmount)
	}
	// Prices never move stock.
	if got := itemStock(t, pool, 1); !got.Equal(dec(48)) {
		t.Errorf("stock moved on a price reduction: %s, want 48", got)
	}
}

func TestReconcile_StaleVersionRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order := createBilledOrder(t, c)

	stale := order.Version - 1
	_, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(8), stale)
	if !errors.Is(err, core.ErrStaleVersion) {
		t.Fatalf("Expected ErrStaleVersion, got %v", err)
	}
	// The rejected write must not have moved anything.
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-1000)) {
		t.Errorf("balance moved on a stale write: %s", got)
	}

	// With the current version the same edit goes through.
	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(8), order.Version); err != nil {
		t.Fatalf("Current-version edit failed: %v", err)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-800)) {
		t.Errorf("balance after versioned edit = %s, want -800", got)
	}
}

func TestReconcile_UnknownFieldRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", OrderedQty: dec(1), DisplayPrice: dec(100)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	_, err = c.UpdateItem(ctx, order.ID, order.Items[0].ID, "ordered_qty", dec(5), 0)
	if !errors.Is(err, core.ErrUnknownField) {
		t.Fatalf("Expected ErrUnknownField, got %v", err)
	}
}

func TestReconcile_IntentWrittenWithApply(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	c := newCoordinator(pool)
	ctx := context.Background()

	order := createBilledOrder(t, c)

	var n int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM reconcile_intents WHERE order_id = $1 AND kind = 'bill'", order.ID).Scan(&n); err != nil {
		t.Fatalf("Failed to count intents: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one bill intent, got %d", n)
	}

	if _, err := c.UpdateStatus(ctx, order.ID, core.StatusRejected, core.RoleAdmin, "", "", nil); err != nil {
		t.Fatalf("Rejection failed: %v", err)
	}
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM reconcile_intents WHERE order_id = $1 AND kind = 'reverse'", order.ID).Scan(&n); err != nil {
		t.Fatalf("Failed to count intents: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one reverse intent, got %d", n)
	}
}

// capturedEvents records emitted event types in place of a kafka producer.
type capturedEvents struct {
	types []string
}

func (e *capturedEvents) Emit(_ context.Context, eventType string, _ int, _ any) {
	e.types = append(e.types, eventType)
}

func TestReconcile_DepletionEventWithoutPortalSync(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	events := &capturedEvents{}
	stock := core.NewStockLedger(pool)
	credit := core.NewCreditLedger(pool)
	audit := core.NewAuditRecorder(pool)
	c := core.NewCoordinator(pool, stock, credit, audit, nil, nil, events, zap.NewNop())
	ctx := context.Background()

	// Billing 10 of item 2's 5 units depletes it. With no portal sync
	// configured the depletion must still reach the event stream.
	order, err := c.CreateOrder(ctx, 1, "", []core.OrderLineInput{
		{Brand: "Bolt", Model: "B2", Quality: "B", OrderedQty: dec(10), DisplayPrice: dec(20)},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := c.UpdateItem(ctx, order.ID, order.Items[0].ID, core.FieldFulfillQty, dec(10), 0); err != nil {
		t.Fatalf("Setting fulfill qty failed: %v", err)
	}
	for _, next := range []core.OrderStatus{core.StatusAssigned, core.StatusPacked, core.StatusChecked} {
		if _, err := c.UpdateStatus(ctx, order.ID, next, core.RoleAdmin, "", "", nil); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	if got := itemStock(t, pool, 2); !got.IsZero() {
		t.Fatalf("stock = %s, want 0", got)
	}
	depleted := false
	for _, typ := range events.types {
		if typ == core.EventStockDepleted {
			depleted = true
		}
	}
	if !depleted {
		t.Errorf("no %s event emitted, got %v", core.EventStockDepleted, events.types)
	}
}
