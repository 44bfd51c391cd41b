package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when no inventory item matches an id or
// identity tuple.
var ErrItemNotFound = errors.New("inventory item not found")

// StockLedger applies signed quantity deltas to inventory items. Quantities
// are clamped at a floor of zero; depletion is reported to the caller so the
// portal visibility sync can run after commit.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger constructs the inventory stock ledger.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// ApplyDeltaTx locks the item row, applies the signed delta clamped at zero,
// and returns the persisted quantity. Positive deltas restore stock, negative
// deltas deduct it.
func (l *StockLedger) ApplyDeltaTx(ctx context.Context, tx pgx.Tx, itemID int, delta decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT quantity FROM inventory_items WHERE id = $1 FOR UPDATE",
		itemID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
		}
		return decimal.Zero, fmt.Errorf("failed to lock inventory item %d: %w", itemID, err)
	}

	newQty := current.Add(delta)
	if newQty.IsNegative() {
		newQty = decimal.Zero
	}

	_, err = tx.Exec(ctx,
		"UPDATE inventory_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		newQty, itemID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update inventory item %d: %w", itemID, err)
	}
	return newQty, nil
}

// ResolveByIdentity finds an inventory item by its case-folded identity tuple.
// Steady-state callers join through inventory_item_id; this resolver backs
// order-item intake and the legacy data backfill.
func (l *StockLedger) ResolveByIdentity(ctx context.Context, id ItemIdentity) (*InventoryItem, error) {
	return resolveIdentityQ(ctx, l.pool, id)
}

// ResolveByIdentityTx is ResolveByIdentity within a caller's transaction.
func (l *StockLedger) ResolveByIdentityTx(ctx context.Context, tx pgx.Tx, id ItemIdentity) (*InventoryItem, error) {
	return resolveIdentityQ(ctx, tx, id)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func resolveIdentityQ(ctx context.Context, q rowQuerier, id ItemIdentity) (*InventoryItem, error) {
	var it InventoryItem
	err := q.QueryRow(ctx, `
		SELECT id, brand, model, quality, quantity, created_at, updated_at
		FROM inventory_items
		WHERE LOWER(brand) = $1 AND LOWER(model) = $2 AND LOWER(quality) = $3
	`, fold(id.Brand), fold(id.Model), fold(id.Quality)).Scan(
		&it.ID, &it.Brand, &it.Model, &it.Quality, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s/%s", ErrItemNotFound, id.Brand, id.Model, id.Quality)
		}
		return nil, fmt.Errorf("failed to resolve inventory item by identity: %w", err)
	}
	return &it, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BackfillItemLinks links order lines that predate inventory_item_id capture
// to their items by identity tuple. Lines whose identity resolves to nothing
// are left unlinked for manual review. Returns the number of rows linked.
func (l *StockLedger) BackfillItemLinks(ctx context.Context) (int, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT DISTINCT brand, model, quality
		FROM order_items
		WHERE inventory_item_id IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query unlinked order items: %w", err)
	}
	var idents []ItemIdentity
	for rows.Next() {
		var id ItemIdentity
		if err := rows.Scan(&id.Brand, &id.Model, &id.Quality); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan unlinked identity: %w", err)
		}
		idents = append(idents, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read unlinked identities: %w", err)
	}

	linked := 0
	for _, id := range idents {
		item, err := l.ResolveByIdentity(ctx, id)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			return linked, err
		}
		tag, err := l.pool.Exec(ctx, `
			UPDATE order_items SET inventory_item_id = $1
			WHERE inventory_item_id IS NULL
			  AND LOWER(brand) = $2 AND LOWER(model) = $3 AND LOWER(quality) = $4
		`, item.ID, fold(id.Brand), fold(id.Model), fold(id.Quality))
		if err != nil {
			return linked, fmt.Errorf("failed to link order items for %s/%s/%s: %w",
				id.Brand, id.Model, id.Quality, err)
		}
		linked += int(tag.RowsAffected())
	}
	return linked, nil
}

// GetItem fetches one inventory item by id.
func (l *StockLedger) GetItem(ctx context.Context, itemID int) (*InventoryItem, error) {
	var it InventoryItem
	err := l.pool.QueryRow(ctx, `
		SELECT id, brand, model, quality, quantity, created_at, updated_at
		FROM inventory_items WHERE id = $1
	`, itemID).Scan(&it.ID, &it.Brand, &it.Model, &it.Quality, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to fetch inventory item %d: %w", itemID, err)
	}
	return &it, nil
}

// ListItems returns the full stock list ordered by identity tuple.
func (l *StockLedger) ListItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, brand, model, quality, quantity, created_at, updated_at
		FROM inventory_items
		ORDER BY LOWER(brand), LOWER(model), LOWER(quality)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ID, &it.Brand, &it.Model, &it.Quality, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateItem inserts a new inventory item. The unique identity index rejects
// duplicates that differ only in case.
func (l *StockLedger) CreateItem(ctx context.Context, brand, model, quality string, qty decimal.Decimal) (*InventoryItem, error) {
	if qty.IsNegative() {
		return nil, fmt.Errorf("initial quantity cannot be negative, got %s", qty)
	}
	var it InventoryItem
	err := l.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (brand, model, quality, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, brand, model, quality, quantity, created_at, updated_at
	`, strings.TrimSpace(brand), strings.TrimSpace(model), strings.TrimSpace(quality), qty).Scan(
		&it.ID, &it.Brand, &it.Model, &it.Quality, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}
	return &it, nil
}
