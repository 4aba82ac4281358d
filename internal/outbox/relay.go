package outbox

import (
	"context"
	"time"

	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelayConfig tunes the relay
type RelayConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
	// MinAge keeps the relay away from messages that the request which
	// wrote them is still delivering inline.
	MinAge time.Duration
}

// Relay retries messages that were not delivered inline
type Relay struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	cfg        RelayConfig
	now        func() time.Time
}

// NewRelay creates a relay over the dispatcher's handlers
func NewRelay(db *gorm.DB, dispatcher *Dispatcher, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Relay{db: db, dispatcher: dispatcher, cfg: cfg, now: time.Now}
}

// Pending returns undelivered messages that still have attempts left,
// oldest first
func (r *Relay) Pending(ctx context.Context) ([]model.OutboxMessage, error) {
	var msgs []model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ? AND created_at <= ?", r.cfg.MaxAttempts, r.now().Add(-r.cfg.MinAge)).
		Order("id asc").
		Limit(r.cfg.BatchSize).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "load pending outbox messages")
	}
	return msgs, nil
}

// RunOnce delivers one batch of pending messages and reports how many
// were delivered
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.Pending(ctx)
	if err != nil {
		return 0, err
	}
	prometheus.OutboxPendingGauge.Set(float64(len(msgs)))
	if len(msgs) == 0 {
		return 0, nil
	}

	delivered := r.dispatcher.Deliver(ctx, msgs)
	logger.FromCtx(ctx).Info("Outbox relay pass finished",
		zap.Int("pending", len(msgs)),
		zap.Int("delivered", delivered))
	return delivered, nil
}

// Run loops until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	log := logger.FromCtx(ctx)
	log.Info("Outbox relay started", zap.Duration("interval", r.cfg.Interval))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			log.Error("Outbox relay pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}
