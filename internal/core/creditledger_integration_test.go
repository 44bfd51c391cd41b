package core_test

import (
	"context"
	"errors"
	"testing"

	"distribution-backoffice/internal/core"
)

func TestCreditLedger_FirmGroupDisplayedBalance(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	credit := core.NewCreditLedger(pool)

	_, err := pool.Exec(ctx, `
		INSERT INTO firm_groups (id, name) VALUES (1, 'Sharma Group');
		UPDATE customers SET firm_group_id = 1, balance = -300 WHERE id = 1;
		UPDATE customers SET firm_group_id = 1, balance = 100 WHERE id = 2;
	`)
	if err != nil {
		t.Fatalf("Failed to seed firm group: %v", err)
	}

	// Both members display the group sum; their own balances stay distinct.
	for _, id := range []int{1, 2} {
		displayed, err := credit.DisplayedBalance(ctx, id)
		if err != nil {
			t.Fatalf("DisplayedBalance(%d) failed: %v", id, err)
		}
		if !displayed.Equal(dec(-200)) {
			t.Errorf("customer %d displayed balance = %s, want -200", id, displayed)
		}
	}
	c1, err := credit.GetCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if !c1.Balance.Equal(dec(-300)) {
		t.Errorf("own balance = %s, want -300 (deltas stay per-customer)", c1.Balance)
	}

	// A customer without a group displays their own balance.
	solo, err := credit.CreateCustomer(ctx, "C-777", "Solo Stores", "Nashik", "", "", nil)
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	displayed, err := credit.DisplayedBalance(ctx, solo.ID)
	if err != nil {
		t.Fatalf("DisplayedBalance failed: %v", err)
	}
	if !displayed.Equal(solo.Balance) {
		t.Errorf("solo displayed balance = %s, want %s", displayed, solo.Balance)
	}
}

func TestCreditLedger_Resolve(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	credit := core.NewCreditLedger(pool)

	// Numeric ref resolves by id.
	c, err := credit.Resolve(ctx, "1", "")
	if err != nil || c.ID != 1 {
		t.Fatalf("Resolve by id: got %+v, %v", c, err)
	}

	// Code takes precedence over name.
	c, err = credit.Resolve(ctx, "C-002", "")
	if err != nil || c.ID != 2 {
		t.Fatalf("Resolve by code: got %+v, %v", c, err)
	}

	// Name + city fallback for legacy records.
	c, err = credit.Resolve(ctx, "Sharma Traders", "Pune")
	if err != nil || c.ID != 1 {
		t.Fatalf("Resolve by name+city: got %+v, %v", c, err)
	}

	if _, err = credit.Resolve(ctx, "No Such Trader", "Pune"); !errors.Is(err, core.ErrCustomerNotFound) {
		t.Fatalf("Expected ErrCustomerNotFound, got %v", err)
	}
}

func TestCreditLedger_RecordTransaction(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	credit := core.NewCreditLedger(pool)

	// Start the customer in debt, then record a payment against it.
	if _, err := pool.Exec(ctx, "UPDATE customers SET balance = -500 WHERE id = 1"); err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}

	txn, err := credit.RecordTransaction(ctx, 1, "PAYMENT", dec(300), "cheque 1142")
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	if txn.Kind != "PAYMENT" || !txn.Amount.Equal(dec(300)) {
		t.Errorf("transaction = %+v, want PAYMENT of 300", txn)
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-200)) {
		t.Errorf("balance after payment = %s, want -200", got)
	}

	// Unknown kinds are refused before touching the ledger.
	if _, err := credit.RecordTransaction(ctx, 1, "REFUND", dec(10), ""); err == nil {
		t.Error("expected unknown transaction kind to be rejected")
	}
	if got := customerBalance(t, pool, 1); !got.Equal(dec(-200)) {
		t.Errorf("balance moved on a rejected kind: %s", got)
	}
}
