// Package notification creates per-user inbox rows for lease events and
// serves the inbox.
package notification

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Fanout writes one notification per recipient, concurrently
type Fanout struct {
	db          *gorm.DB
	resolver    RecipientResolver
	publisher   Publisher
	concurrency int
}

// NewFanout creates a fan-out. publisher may be nil.
func NewFanout(db *gorm.DB, resolver RecipientResolver, publisher Publisher, concurrency int) *Fanout {
	if resolver == nil {
		resolver = AllUsers{}
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Fanout{db: db, resolver: resolver, publisher: publisher, concurrency: concurrency}
}

// Send creates the notifications for ev and reports how many were stored.
// A failure for one recipient is logged and skipped; an error is returned
// only when recipients cannot be resolved or nothing could be stored.
func (f *Fanout) Send(ctx context.Context, ev Event) (int, error) {
	log := logger.FromCtx(ctx)

	recipients, err := f.resolver.Recipients(ctx, f.db, ev)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	var created int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, userID := range recipients {
		g.Go(func() error {
			n := ev.row(userID)
			if err := f.db.WithContext(gctx).Create(&n).Error; err != nil {
				log.Warn("Failed to create notification",
					zap.Uint("user_id", userID),
					zap.String("title", ev.Title),
					zap.Error(err))
				prometheus.RecordSideEffectFailure("notification.create")
				return nil
			}
			atomic.AddInt64(&created, 1)
			prometheus.NotificationsCreatedCounter.Inc()

			if f.publisher != nil {
				if err := f.publisher.Publish(gctx, n); err != nil {
					log.Warn("Failed to publish notification",
						zap.Uint("user_id", userID),
						zap.Uint("notification_id", n.ID),
						zap.Error(err))
					prometheus.RecordSideEffectFailure("notification.publish")
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if created == 0 {
		return 0, errors.Errorf("no notifications stored for %d recipients", len(recipients))
	}

	log.Debug("Notifications created",
		zap.String("title", ev.Title),
		zap.Int("recipients", len(recipients)),
		zap.Int64("created", created))
	return int(created), nil
}

// HandleOutbox sends an event delivered through the outbox
func (f *Fanout) HandleOutbox(ctx context.Context, payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return errors.Wrap(err, "decode notification event")
	}
	_, err := f.Send(ctx, ev)
	return err
}
