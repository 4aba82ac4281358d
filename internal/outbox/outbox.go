// Package outbox persists side-effect intents inside the business
// transaction and delivers them after commit, retrying failures.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message kinds
const (
	KindAudit      = "audit.record"
	KindNotify     = "notification.fanout"
	KindLeaseEvent = "lease.event"
)

// Handler delivers one message payload. Returning an error leaves the
// message pending for the relay.
type Handler func(ctx context.Context, payload []byte) error

// Enqueue stores an intent using tx, which must be the transaction of the
// state change that produced it
func Enqueue(tx *gorm.DB, kind string, payload interface{}) (model.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.OutboxMessage{}, errors.Wrapf(err, "marshal %s payload", kind)
	}

	msg := model.OutboxMessage{Kind: kind, Payload: datatypes.JSON(body)}
	if err := tx.Create(&msg).Error; err != nil {
		return model.OutboxMessage{}, errors.Wrapf(err, "enqueue %s", kind)
	}
	return msg, nil
}

// Dispatcher routes messages to the handler registered for their kind
type Dispatcher struct {
	db       *gorm.DB
	handlers map[string]Handler
}

// NewDispatcher creates a dispatcher with no handlers
func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db, handlers: make(map[string]Handler)}
}

// Register binds a handler to a message kind
func (d *Dispatcher) Register(kind string, h Handler) {
	d.handlers[kind] = h
}

// Deliver runs the handlers for msgs in order. Failures are logged,
// counted and recorded on the message; they are never returned.
// It reports how many messages were delivered.
func (d *Dispatcher) Deliver(ctx context.Context, msgs []model.OutboxMessage) int {
	log := logger.FromCtx(ctx)
	delivered := 0

	for _, msg := range msgs {
		err := d.run(ctx, msg)
		if err != nil {
			log.Error("Outbox delivery failed",
				zap.Uint("outbox_id", msg.ID),
				zap.String("kind", msg.Kind),
				zap.Int("attempt", msg.Attempts+1),
				zap.Error(err))
			prometheus.RecordSideEffectFailure(msg.Kind)
		} else {
			delivered++
		}

		if markErr := d.mark(ctx, msg.ID, err); markErr != nil {
			log.Error("Failed to record outbox delivery",
				zap.Uint("outbox_id", msg.ID),
				zap.Error(markErr))
		}
	}

	return delivered
}

func (d *Dispatcher) run(ctx context.Context, msg model.OutboxMessage) (err error) {
	h, ok := d.handlers[msg.Kind]
	if !ok {
		return fmt.Errorf("no handler registered for %q", msg.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg.Payload)
}

func (d *Dispatcher) mark(ctx context.Context, id uint, deliveryErr error) error {
	updates := map[string]interface{}{
		"attempts": gorm.Expr("attempts + 1"),
	}
	if deliveryErr != nil {
		updates["last_error"] = deliveryErr.Error()
	} else {
		updates["delivered_at"] = time.Now().UTC()
		updates["last_error"] = ""
	}

	return d.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(updates).Error
}
