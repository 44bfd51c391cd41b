package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// portalSetKey is the redis set mirroring a link's whitelist, read by the
// customer-facing catalog.
func portalSetKey(linkID int) string {
	return fmt.Sprintf("portal:link:%d:items", linkID)
}

// PortalSync keeps distribution-link whitelists consistent with stock levels:
// an item whose stock reaches zero must disappear from every shared catalog.
// All sync work is best-effort — failures are logged, never propagated into a
// reconciliation.
type PortalSync struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  *zap.Logger
}

// NewPortalSync constructs the portal visibility sync. rdb may be nil when no
// cache is configured; the database whitelist is then the only copy.
func NewPortalSync(pool *pgxpool.Pool, rdb *redis.Client, log *zap.Logger) *PortalSync {
	return &PortalSync{pool: pool, rdb: rdb, log: log}
}

// SyncDepleted removes a depleted item from every whitelist that carries it,
// in the database and in the cached redis sets. Errors are swallowed after
// logging: visibility sync must never fail a reconciliation.
func (p *PortalSync) SyncDepleted(ctx context.Context, itemID int) {
	rows, err := p.pool.Query(ctx,
		"DELETE FROM distribution_link_items WHERE inventory_item_id = $1 RETURNING link_id",
		itemID,
	)
	if err != nil {
		p.log.Warn("portal visibility sync failed", zap.Int("item_id", itemID), zap.Error(err))
		return
	}
	var linkIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			p.log.Warn("portal visibility sync scan failed", zap.Int("item_id", itemID), zap.Error(err))
			return
		}
		linkIDs = append(linkIDs, id)
	}
	rows.Close()

	if p.rdb == nil || len(linkIDs) == 0 {
		return
	}
	for _, linkID := range linkIDs {
		if err := p.rdb.SRem(ctx, portalSetKey(linkID), itemID).Err(); err != nil {
			p.log.Warn("portal cache eviction failed",
				zap.Int("item_id", itemID), zap.Int("link_id", linkID), zap.Error(err))
		}
	}
	p.log.Info("depleted item removed from portals",
		zap.Int("item_id", itemID), zap.Int("links", len(linkIDs)))
}

// CreateLink creates a distribution link with a fresh share token.
func (p *PortalSync) CreateLink(ctx context.Context, name string) (*DistributionLink, error) {
	var l DistributionLink
	err := p.pool.QueryRow(ctx, `
		INSERT INTO distribution_links (name, share_token)
		VALUES ($1, $2)
		RETURNING id, name, share_token, created_at
	`, name, uuid.NewString()).Scan(&l.ID, &l.Name, &l.ShareToken, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create distribution link: %w", err)
	}
	return &l, nil
}

// WhitelistItem adds an inventory item to a link's whitelist and mirrors the
// change into the cached set.
func (p *PortalSync) WhitelistItem(ctx context.Context, linkID, itemID int) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO distribution_link_items (link_id, inventory_item_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, linkID, itemID)
	if err != nil {
		return fmt.Errorf("failed to whitelist item %d on link %d: %w", itemID, linkID, err)
	}
	if p.rdb != nil {
		if err := p.rdb.SAdd(ctx, portalSetKey(linkID), itemID).Err(); err != nil {
			p.log.Warn("portal cache add failed",
				zap.Int("item_id", itemID), zap.Int("link_id", linkID), zap.Error(err))
		}
	}
	return nil
}

// GetLink fetches a link with its whitelisted item ids.
func (p *PortalSync) GetLink(ctx context.Context, linkID int) (*DistributionLink, error) {
	var l DistributionLink
	err := p.pool.QueryRow(ctx,
		"SELECT id, name, share_token, created_at FROM distribution_links WHERE id = $1",
		linkID,
	).Scan(&l.ID, &l.Name, &l.ShareToken, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("distribution link %d not found", linkID)
		}
		return nil, fmt.Errorf("failed to fetch distribution link %d: %w", linkID, err)
	}

	rows, err := p.pool.Query(ctx,
		"SELECT inventory_item_id FROM distribution_link_items WHERE link_id = $1 ORDER BY inventory_item_id",
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query link items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan link item: %w", err)
		}
		l.ItemIDs = append(l.ItemIDs, id)
	}
	return &l, rows.Err()
}
