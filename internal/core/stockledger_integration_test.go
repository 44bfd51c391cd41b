package core_test

import (
	"context"
	"testing"

	"distribution-backoffice/internal/core"
)

func TestStockLedger_BackfillItemLinks(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	// Two imported lines without a foreign key: one matches item 1 up to
	// casing, the other names an identity that does not exist.
	_, err := pool.Exec(ctx, `
		INSERT INTO orders (id, customer_id, status) VALUES (1, 1, 'fresh');
		INSERT INTO order_items (order_id, brand, model, quality, ordered_qty, display_price) VALUES
			(1, 'ACME', 'x100', 'a', 2, 100),
			(1, 'Ghost', 'G1', 'C', 1, 10);
		SELECT setval('orders_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed unlinked order items: %v", err)
	}

	linked, err := core.NewStockLedger(pool).BackfillItemLinks(ctx)
	if err != nil {
		t.Fatalf("BackfillItemLinks failed: %v", err)
	}
	if linked != 1 {
		t.Errorf("linked = %d, want 1", linked)
	}

	var acmeLink *int
	if err := pool.QueryRow(ctx,
		"SELECT inventory_item_id FROM order_items WHERE brand = 'ACME'").Scan(&acmeLink); err != nil {
		t.Fatalf("Failed to read linked row: %v", err)
	}
	if acmeLink == nil || *acmeLink != 1 {
		t.Errorf("ACME line link = %v, want 1", acmeLink)
	}

	var ghostLink *int
	if err := pool.QueryRow(ctx,
		"SELECT inventory_item_id FROM order_items WHERE brand = 'Ghost'").Scan(&ghostLink); err != nil {
		t.Fatalf("Failed to read unresolved row: %v", err)
	}
	if ghostLink != nil {
		t.Errorf("unresolvable line link = %d, want NULL", *ghostLink)
	}
}
