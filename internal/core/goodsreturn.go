package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrReturnNotFound is returned when no goods return matches an id.
var ErrReturnNotFound = errors.New("goods return not found")

// ReturnLineInput is one returned line when creating a goods return.
type ReturnLineInput struct {
	Brand     string
	Model     string
	Quality   string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// ReturnService runs the goods-return flow: the symmetric, opposite-signed
// counterpart of a sale. Finalizing a return credits the customer and restores
// stock; the stock-room projection replays return history minus manual
// removals.
type ReturnService struct {
	pool   *pgxpool.Pool
	stock  *StockLedger
	credit *CreditLedger
	audit  *AuditRecorder
	events EventPublisher
	log    *zap.Logger
}

// NewReturnService wires the goods-return service. events may be nil.
func NewReturnService(pool *pgxpool.Pool, stock *StockLedger, credit *CreditLedger,
	audit *AuditRecorder, events EventPublisher, log *zap.Logger) *ReturnService {
	return &ReturnService{pool: pool, stock: stock, credit: credit, audit: audit, events: events, log: log}
}

// CreateReturn records a draft goods return with its lines. Lines with
// non-positive quantities are filtered out up front.
func (s *ReturnService) CreateReturn(ctx context.Context, customerID int, lines []ReturnLineInput) (*GoodsReturn, error) {
	var kept []ReturnLineInput
	var total decimal.Decimal
	for _, l := range lines {
		if !l.Quantity.IsPositive() || l.UnitPrice.IsNegative() {
			continue
		}
		kept = append(kept, l)
		total = total.Add(l.Quantity.Mul(l.UnitPrice))
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("return must have at least one line with positive quantity")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var returnID int
	err = tx.QueryRow(ctx, `
		INSERT INTO goods_returns (customer_id, status, total_amount)
		VALUES ($1, $2, $3)
		RETURNING id
	`, customerID, ReturnDraft, total).Scan(&returnID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert goods return: %w", err)
	}

	for i, l := range kept {
		_, err = tx.Exec(ctx, `
			INSERT INTO goods_return_items (return_id, brand, model, quality, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, returnID, l.Brand, l.Model, l.Quality, l.Quantity, l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert return line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return creation: %w", err)
	}
	return s.GetReturn(ctx, returnID)
}

// FinalizeReturn credits the customer by the return total, restores stock for
// each returned line, and writes "Added" log rows — one transaction, the exact
// mirror of billing a sale.
func (s *ReturnService) FinalizeReturn(ctx context.Context, returnID int) (*GoodsReturn, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerID int
	var status GoodsReturnStatus
	var total decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT customer_id, status, total_amount FROM goods_returns WHERE id = $1 FOR UPDATE",
		returnID,
	).Scan(&customerID, &status, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrReturnNotFound, returnID)
		}
		return nil, fmt.Errorf("failed to lock goods return %d: %w", returnID, err)
	}
	if status != ReturnDraft {
		return nil, fmt.Errorf("goods return %d is already %s", returnID, status)
	}

	if _, err := s.credit.ApplyDeltaTx(ctx, tx, customerID, total); err != nil {
		return nil, fmt.Errorf("return credit failed: %w", err)
	}

	items, err := s.fetchReturnItemsTx(ctx, tx, returnID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		inv, err := s.stock.ResolveByIdentityTx(ctx, tx, it.Identity())
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				s.log.Warn("return restock skipped: no matching inventory item",
					zap.Int("return_id", returnID),
					zap.String("brand", it.Brand), zap.String("model", it.Model), zap.String("quality", it.Quality))
				continue
			}
			return nil, err
		}
		newQty, err := s.stock.ApplyDeltaTx(ctx, tx, inv.ID, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("stock restore failed for item %d: %w", inv.ID, err)
		}
		err = s.audit.AppendTx(ctx, tx, InventoryLog{
			LogID:           ReturnLogID(returnID, inv.ID),
			InventoryItemID: inv.ID,
			QuantityChange:  it.Quantity,
			CurrentStock:    newQty,
			Remark:          fmt.Sprintf("Added %s × %s/%s/%s — goods return #%d", it.Quantity, it.Brand, it.Model, it.Quality, returnID),
		})
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE goods_returns SET status = $1, finalized_at = NOW() WHERE id = $2",
		ReturnFinalized, returnID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize goods return %d: %w", returnID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit goods return %d: %w", returnID, err)
	}

	if s.events != nil {
		s.events.Emit(ctx, EventReturnFinalized, 0, map[string]any{
			"return_id": returnID, "customer_id": customerID, "total": total,
		})
	}
	return s.GetReturn(ctx, returnID)
}

// DeleteReturn removes the history record only. The stock and balance effects
// of an already finalized return are NOT reversed here — reconciling them is a
// deliberate manual step for the back office.
func (s *ReturnService) DeleteReturn(ctx context.Context, returnID int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM goods_returns WHERE id = $1", returnID)
	if err != nil {
		return fmt.Errorf("failed to delete goods return %d: %w", returnID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrReturnNotFound, returnID)
	}
	s.log.Info("goods return record deleted; ledger effects left for manual reconciliation",
		zap.Int("return_id", returnID))
	return nil
}

// RecordRemoval notes a manual physical removal from the stock room, keyed by
// identity tuple. The projection subtracts it from the replayed return totals.
func (s *ReturnService) RecordRemoval(ctx context.Context, id ItemIdentity, qty decimal.Decimal, remark string) (*StockRoomRemoval, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("removal quantity must be positive, got %s", qty)
	}
	var r StockRoomRemoval
	err := s.pool.QueryRow(ctx, `
		INSERT INTO stock_room_removals (brand, model, quality, quantity, remark)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, brand, model, quality, quantity, remark, created_at
	`, id.Brand, id.Model, id.Quality, qty, remark).Scan(
		&r.ID, &r.Brand, &r.Model, &r.Quality, &r.Quantity, &r.Remark, &r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record stock room removal: %w", err)
	}
	return &r, nil
}

// StockRoomProjection computes the derived stock-room view: all finalized
// return lines folded into per-identity-tuple running totals, minus recorded
// manual removals, floored at zero. It is never stored.
func (s *ReturnService) StockRoomProjection(ctx context.Context) ([]StockRoomLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gri.brand, gri.model, gri.quality, gri.quantity
		FROM goods_return_items gri
		JOIN goods_returns gr ON gr.id = gri.return_id
		WHERE gr.status = $1
	`, ReturnFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query return history: %w", err)
	}
	lines, err := collectProjectionLines(rows)
	if err != nil {
		return nil, err
	}

	removalRows, err := s.pool.Query(ctx,
		"SELECT brand, model, quality, quantity FROM stock_room_removals")
	if err != nil {
		return nil, fmt.Errorf("failed to query stock room removals: %w", err)
	}
	removals, err := collectProjectionLines(removalRows)
	if err != nil {
		return nil, err
	}

	return FoldStockRoom(lines, removals), nil
}

// ProjectionLine is one (identity tuple, quantity) contribution to the
// stock-room fold.
type ProjectionLine struct {
	Identity ItemIdentity
	Qty      decimal.Decimal
}

func collectProjectionLines(rows pgx.Rows) ([]ProjectionLine, error) {
	defer rows.Close()
	var out []ProjectionLine
	for rows.Next() {
		var l ProjectionLine
		if err := rows.Scan(&l.Identity.Brand, &l.Identity.Model, &l.Identity.Quality, &l.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan projection line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FoldStockRoom is the pure fold behind the projection: sum returned
// quantities per identity tuple, subtract removals, floor at zero, and drop
// empty tuples. Split out so it can be tested without a database.
func FoldStockRoom(returns, removals []ProjectionLine) []StockRoomLevel {
	type bucket struct {
		identity ItemIdentity
		qty      decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	for _, l := range returns {
		key := l.Identity.Key()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{identity: l.Identity}
			buckets[key] = b
		}
		b.qty = b.qty.Add(l.Qty)
	}
	for _, l := range removals {
		if b, ok := buckets[l.Identity.Key()]; ok {
			b.qty = b.qty.Sub(l.Qty)
		}
	}

	var levels []StockRoomLevel
	for _, b := range buckets {
		if !b.qty.IsPositive() {
			continue
		}
		levels = append(levels, StockRoomLevel{
			Brand:    b.identity.Brand,
			Model:    b.identity.Model,
			Quality:  b.identity.Quality,
			Quantity: b.qty,
		})
	}
	sort.Slice(levels, func(i, j int) bool {
		a := ItemIdentity{Brand: levels[i].Brand, Model: levels[i].Model, Quality: levels[i].Quality}
		b := ItemIdentity{Brand: levels[j].Brand, Model: levels[j].Model, Quality: levels[j].Quality}
		return a.Key() < b.Key()
	})
	return levels
}

// GetReturn fetches a goods return with its lines.
func (s *ReturnService) GetReturn(ctx context.Context, returnID int) (*GoodsReturn, error) {
	var r GoodsReturn
	err := s.pool.QueryRow(ctx, `
		SELECT gr.id, gr.customer_id, c.name, gr.status, gr.total_amount, gr.created_at, gr.finalized_at
		FROM goods_returns gr
		JOIN customers c ON c.id = gr.customer_id
		WHERE gr.id = $1
	`, returnID).Scan(&r.ID, &r.CustomerID, &r.CustomerName, &r.Status, &r.TotalAmount, &r.CreatedAt, &r.FinalizedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrReturnNotFound, returnID)
		}
		return nil, fmt.Errorf("failed to fetch goods return %d: %w", returnID, err)
	}

	items, err := s.fetchReturnItems(ctx, returnID)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return &r, nil
}

// ListReturns returns all goods returns, newest first.
func (s *ReturnService) ListReturns(ctx context.Context) ([]GoodsReturn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gr.id, gr.customer_id, c.name, gr.status, gr.total_amount, gr.created_at, gr.finalized_at
		FROM goods_returns gr
		JOIN customers c ON c.id = gr.customer_id
		ORDER BY gr.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goods returns: %w", err)
	}
	defer rows.Close()

	var returns []GoodsReturn
	for rows.Next() {
		var r GoodsReturn
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.CustomerName, &r.Status, &r.TotalAmount, &r.CreatedAt, &r.FinalizedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goods return: %w", err)
		}
		returns = append(returns, r)
	}
	return returns, rows.Err()
}

func (s *ReturnService) fetchReturnItems(ctx context.Context, returnID int) ([]GoodsReturnItem, error) {
	return fetchReturnItemsQ(ctx, s.pool, returnID)
}

func (s *ReturnService) fetchReturnItemsTx(ctx context.Context, tx pgx.Tx, returnID int) ([]GoodsReturnItem, error) {
	return fetchReturnItemsQ(ctx, tx, returnID)
}

func fetchReturnItemsQ(ctx context.Context, q queryRunner, returnID int) ([]GoodsReturnItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, return_id, brand, model, quality, quantity, unit_price
		FROM goods_return_items
		WHERE return_id = $1
		ORDER BY id
	`, returnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query return items: %w", err)
	}
	defer rows.Close()

	var items []GoodsReturnItem
	for rows.Next() {
		var it GoodsReturnItem
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.Brand, &it.Model, &it.Quality, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan return item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
