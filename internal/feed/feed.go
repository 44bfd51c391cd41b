// Package feed pushes live order snapshots over Redis pub/sub so every open
// back-office screen converges on the same state without polling.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"distribution-backoffice/internal/core"
)

const ordersChannel = "orders:all"

func orderChannel(orderID int) string {
	return fmt.Sprintf("order:%d", orderID)
}

// Publisher broadcasts order snapshots after a reconciliation commits.
// Publishing is best-effort; a dropped snapshot is recovered by the next one
// or by a plain refetch.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewPublisher(rdb *redis.Client, log *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, log: log}
}

// PublishOrder pushes the snapshot to the list channel and the per-order
// detail channel.
func (p *Publisher) PublishOrder(ctx context.Context, order *core.Order) {
	if p == nil || p.rdb == nil {
		return
	}
	body, err := json.Marshal(order)
	if err != nil {
		p.log.Warn("order snapshot encode failed", zap.Int("order_id", order.ID), zap.Error(err))
		return
	}
	for _, ch := range []string{ordersChannel, orderChannel(order.ID)} {
		if err := p.rdb.Publish(ctx, ch, body).Err(); err != nil {
			p.log.Warn("order snapshot publish failed",
				zap.String("channel", ch), zap.Int("order_id", order.ID), zap.Error(err))
		}
	}
}

// ListenToOrders subscribes to the order list feed. Snapshots arrive on the
// returned channel until ctx is cancelled.
func (p *Publisher) ListenToOrders(ctx context.Context) <-chan *core.Order {
	return p.listen(ctx, ordersChannel)
}

// ListenToOrderDetails subscribes to a single order's feed.
func (p *Publisher) ListenToOrderDetails(ctx context.Context, orderID int) <-chan *core.Order {
	return p.listen(ctx, orderChannel(orderID))
}

func (p *Publisher) listen(ctx context.Context, channel string) <-chan *core.Order {
	out := make(chan *core.Order)
	sub := p.rdb.Subscribe(ctx, channel)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var order core.Order
				if err := json.Unmarshal([]byte(msg.Payload), &order); err != nil {
					p.log.Warn("order snapshot decode failed",
						zap.String("channel", channel), zap.Error(err))
					continue
				}
				select {
				case out <- &order:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
