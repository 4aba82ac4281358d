// Package events streams lease lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/logger"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types
const (
	LeaseCreated    = "lease.created"
	LeaseUpdated    = "lease.updated"
	LeaseTerminated = "lease.terminated"
	LeaseDeleted    = "lease.deleted"
	LeaseExpired    = "lease.expired"
)

// LeaseEvent is the message body published for a lease mutation
type LeaseEvent struct {
	Type       string            `json:"type"`
	LeaseID    uint              `json:"lease_id"`
	TenantID   uint              `json:"tenant_id"`
	Status     model.LeaseStatus `json:"status"`
	UnitIDs    []uint            `json:"unit_ids"`
	ActorID    uint              `json:"actor_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewLeaseEvent describes lease as it stands after a mutation
func NewLeaseEvent(eventType string, lease *model.Lease, actorID uint) LeaseEvent {
	unitIDs := make([]uint, 0, len(lease.LeaseUnits))
	for _, lu := range lease.LeaseUnits {
		unitIDs = append(unitIDs, lu.UnitID)
	}
	return LeaseEvent{
		Type:       eventType,
		LeaseID:    lease.ID,
		TenantID:   lease.TenantID,
		Status:     lease.Status,
		UnitIDs:    unitIDs,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends lease events
type Publisher interface {
	Publish(ctx context.Context, ev LeaseEvent) error
	Close() error
}

// KafkaPublisher writes events keyed by lease id so a lease's events stay
// ordered within one partition
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Message encodes ev as a kafka message
func Message(ev LeaseEvent) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "marshal lease event")
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.LeaseID), 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev LeaseEvent) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msg), "kafka write")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs events; used when no brokers are configured
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev LeaseEvent) error {
	logger.FromCtx(ctx).Debug("Lease event",
		zap.String("type", ev.Type),
		zap.Uint("lease_id", ev.LeaseID))
	return nil
}

func (LogPublisher) Close() error { return nil }

// OutboxHandler decodes an outbox payload and publishes it
func OutboxHandler(p Publisher) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var ev LeaseEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return errors.Wrap(err, "decode lease event")
		}
		return p.Publish(ctx, ev)
	}
}
