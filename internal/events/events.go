// Package events publishes reconciliation events to Kafka for downstream
// consumers (reporting, stock dashboards). Publishing is best-effort and runs
// after the owning transaction has committed; losing an event never loses
// ledger state.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Envelope is the versioned wire format for every event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id when applicable
	Payload       json.RawMessage `json:"payload"`
}

// Producer writes envelopes to a single topic, keyed by order id so all
// events for one order stay ordered within a partition.
type Producer struct {
	w       *kafka.Writer
	service string
	log     *zap.Logger
}

// NewProducer builds a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic, service string, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		service: service,
		log:     log,
	}
}

// Emit publishes one event. Errors are logged, never returned: the ledger
// transaction this event describes has already committed.
func (p *Producer) Emit(ctx context.Context, eventType string, orderID int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn("event payload encode failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     p.service,
	}
	key := []byte(env.EventID)
	if orderID > 0 {
		env.CorrelationID = strconv.Itoa(orderID)
		key = []byte(env.CorrelationID)
	}
	env.Payload = body

	msg, err := json.Marshal(env)
	if err != nil {
		p.log.Warn("event envelope encode failed", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: msg, Time: env.OccurredAt}); err != nil {
		p.log.Warn("event publish failed", zap.String("type", eventType), zap.Error(err))
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.w.Close() }
