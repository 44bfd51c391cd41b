package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Log id prefixes. Only sale- rows are ever deleted automatically (by the
// rejected-sale reversal); every other prefix is append-only.
const (
	logPrefixSale   = "sale"
	logPrefixReturn = "return"
	logPrefixAdjust = "adjust"
	logPrefixManual = "manual"
)

// SaleLogID mints the deterministic id for a sale-driven deduction. It doubles
// as the idempotency and reversal key: the reject path deletes this exact id.
func SaleLogID(orderID, itemID int) string {
	return fmt.Sprintf("%s-%d-%d", logPrefixSale, orderID, itemID)
}

// ReturnLogID mints the deterministic id for a goods-return restock row.
func ReturnLogID(returnID, itemID int) string {
	return fmt.Sprintf("%s-%d-%d", logPrefixReturn, returnID, itemID)
}

// AdjustLogID mints an id for a correction row (billed-state item edit or bulk
// operation). The uuid suffix keeps successive corrections on the same line
// distinct — corrections are never deleted, so the id need not be replayable.
func AdjustLogID(orderID, itemID int) string {
	return fmt.Sprintf("%s-%d-%d-%s", logPrefixAdjust, orderID, itemID, uuid.NewString())
}

// ManualLogID mints an id for a hand-entered stock correction.
func ManualLogID() string {
	return fmt.Sprintf("%s-%s", logPrefixManual, uuid.NewString())
}

// AuditRecorder appends immutable stock-movement records and supports the one
// deletion path used to reverse a rejected sale.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder constructs the audit log recorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// AppendTx inserts a log row within the caller's transaction. Re-applying the
// same deterministic id is a no-op, which makes reconciliation applies
// idempotent under retry.
func (a *AuditRecorder) AppendTx(ctx context.Context, tx pgx.Tx, log InventoryLog) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_logs (log_id, inventory_item_id, quantity_change, current_stock, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (log_id) DO NOTHING
	`, log.LogID, log.InventoryItemID, log.QuantityChange, log.CurrentStock, log.Remark)
	if err != nil {
		return fmt.Errorf("failed to append inventory log %s: %w", log.LogID, err)
	}
	return nil
}

// DeleteTx removes a log row by id within the caller's transaction. Only the
// sale-reversal path calls this; a missing row is not an error.
func (a *AuditRecorder) DeleteTx(ctx context.Context, tx pgx.Tx, logID string) error {
	if _, err := tx.Exec(ctx, "DELETE FROM inventory_logs WHERE log_id = $1", logID); err != nil {
		return fmt.Errorf("failed to delete inventory log %s: %w", logID, err)
	}
	return nil
}

// History returns the audit trail for one inventory item, newest first.
func (a *AuditRecorder) History(ctx context.Context, itemID int) ([]InventoryLog, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT log_id, inventory_item_id, quantity_change, current_stock, remark, created_at
		FROM inventory_logs
		WHERE inventory_item_id = $1
		ORDER BY created_at DESC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory logs: %w", err)
	}
	defer rows.Close()

	var logs []InventoryLog
	for rows.Next() {
		var l InventoryLog
		if err := rows.Scan(&l.LogID, &l.InventoryItemID, &l.QuantityChange, &l.CurrentStock, &l.Remark, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
