package core_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"distribution-backoffice/internal/core"
)

func newReturnService(pool *pgxpool.Pool) *core.ReturnService {
	log := zap.NewNop()
	stock := core.NewStockLedger(pool)
	credit := core.NewCreditLedger(pool)
	audit := core.NewAuditRecorder(pool)
	return core.NewReturnService(pool, stock, credit, audit, nil, log)
}

func TestReturnService_Finalize(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newReturnService(pool)

	ret, err := svc.CreateReturn(ctx, 1, []core.ReturnLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", Quantity: dec(3), UnitPrice: dec(90)},
		{Brand: "Bolt", Model: "B2", Quality: "B", Quantity: dec(0), UnitPrice: dec(20)}, // filtered
	})
	if err != nil {
		t.Fatalf("CreateReturn failed: %v", err)
	}
	if len(ret.Items) != 1 {
		t.Fatalf("non-positive lines should be filtered, got %d items", len(ret.Items))
	}
	if ret.Status != core.ReturnDraft {
		t.Fatalf("new return should be draft, got %s", ret.Status)
	}

	// Draft state touches nothing.
	if got := customerBalance(t, pool, 1); !got.IsZero() {
		t.Errorf("balance moved on a draft return: %s", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(50)) {
		t.Errorf("stock moved on a draft return: %s", got)
	}

	ret, err = svc.FinalizeReturn(ctx, ret.ID)
	if err != nil {
		t.Fatalf("FinalizeReturn failed: %v", err)
	}
	if ret.Status != core.ReturnFinalized || ret.FinalizedAt == nil {
		t.Errorf("return not marked finalized: %+v", ret)
	}
	// Credit 3 × 90 = 270, restock +3.
	if got := customerBalance(t, pool, 1); !got.Equal(dec(270)) {
		t.Errorf("balance after finalize = %s, want 270", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(53)) {
		t.Errorf("stock after finalize = %s, want 53", got)
	}

	// The restock leaves a deterministic audit row.
	var n int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM inventory_logs WHERE log_id = $1",
		core.ReturnLogID(ret.ID, 1)).Scan(&n); err != nil {
		t.Fatalf("Failed to count return logs: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one return log row, got %d", n)
	}

	// Finalizing twice is refused; the ledgers stay put.
	if _, err := svc.FinalizeReturn(ctx, ret.ID); err == nil {
		t.Error("expected second finalize to fail")
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(270)) {
		t.Errorf("balance moved on a double finalize: %s", got)
	}
}

func TestReturnService_FinalizeSkipsUnknownIdentity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newReturnService(pool)

	ret, err := svc.CreateReturn(ctx, 1, []core.ReturnLineInput{
		{Brand: "Ghost", Model: "G1", Quality: "X", Quantity: dec(2), UnitPrice: dec(10)},
		{Brand: "Acme", Model: "X100", Quality: "A", Quantity: dec(1), UnitPrice: dec(100)},
	})
	if err != nil {
		t.Fatalf("CreateReturn failed: %v", err)
	}
	if _, err := svc.FinalizeReturn(ctx, ret.ID); err != nil {
		t.Fatalf("FinalizeReturn failed: %v", err)
	}

	// The credit covers both lines; only the known identity restocks.
	if got := customerBalance(t, pool, 1); !got.Equal(dec(120)) {
		t.Errorf("balance = %s, want 120", got)
	}
	if got := itemStock(t, pool, 1); !got.Equal(dec(51)) {
		t.Errorf("stock = %s, want 51", got)
	}
}

func TestReturnService_StockRoomProjection(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := newReturnService(pool)

	ret, err := svc.CreateReturn(ctx, 1, []core.ReturnLineInput{
		{Brand: "Acme", Model: "X100", Quality: "A", Quantity: dec(5), UnitPrice: dec(90)},
	})
	if err != nil {
		t.Fatalf("CreateReturn failed: %v", err)
	}

	// Draft returns stay out of the projection.
	levels, err := svc.StockRoomProjection(ctx)
	if err != nil {
		t.Fatalf("StockRoomProjection failed: %v", err)
	}
	if len(levels) != 0 {
		t.Fatalf("draft return leaked into the projection: %+v", levels)
	}

	if _, err := svc.FinalizeReturn(ctx, ret.ID); err != nil {
		t.Fatalf("FinalizeReturn failed: %v", err)
	}
	id := core.ItemIdentity{Brand: "Acme", Model: "X100", Quality: "A"}
	if _, err := svc.RecordRemoval(ctx, id, dec(2), "sent to repair vendor"); err != nil {
		t.Fatalf("RecordRemoval failed: %v", err)
	}

	levels, err = svc.StockRoomProjection(ctx)
	if err != nil {
		t.Fatalf("StockRoomProjection failed: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected one projected level, got %+v", levels)
	}
	if !levels[0].Quantity.Equal(dec(3)) {
		t.Errorf("projected quantity = %s, want 3 (5 returned − 2 removed)", levels[0].Quantity)
	}
}
