package main

import (
	"context"

	"github.com/suteetoe/leasedesk/internal/audit"
	"github.com/suteetoe/leasedesk/internal/events"
	"github.com/suteetoe/leasedesk/internal/lease"
	"github.com/suteetoe/leasedesk/internal/notification"
	"github.com/suteetoe/leasedesk/internal/outbox"
	"github.com/suteetoe/leasedesk/pkg/config"
	"github.com/suteetoe/leasedesk/pkg/database"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "leasedesk"

// app is the wired dependency graph shared by every command
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	dispatcher *outbox.Dispatcher
	leases     *lease.Service
	closers    []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	log := logger.GetLogger()
	log.Info("Configuration loaded", cfg.LogConfig()...)

	prometheus.InitMetrics(cfg)

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	var publisher notification.Publisher
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unavailable, realtime push disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			publisher = notification.NewRedisPublisher(client, cfg.Redis.ChannelPrefix)
			a.closers = append(a.closers, client.Close)
			log.Info("Realtime notifications enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var eventPublisher events.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		eventPublisher = kp
		a.closers = append(a.closers, kp.Close)
		log.Info("Lease events enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	fanout := notification.NewFanout(db, notification.ResolverFor(cfg.Notify.Roles), publisher, cfg.Notify.Concurrency)

	a.dispatcher = outbox.NewDispatcher(db)
	a.dispatcher.Register(outbox.KindAudit, audit.NewRecorder(db).HandleOutbox)
	a.dispatcher.Register(outbox.KindNotify, fanout.HandleOutbox)
	a.dispatcher.Register(outbox.KindLeaseEvent, events.OutboxHandler(eventPublisher))

	a.leases = lease.NewService(db, a.dispatcher)
	return a, nil
}

func (a *app) relay() *outbox.Relay {
	return outbox.NewRelay(a.db, a.dispatcher, outbox.RelayConfig{
		Interval:    a.cfg.Outbox.RelayInterval,
		MaxAttempts: a.cfg.Outbox.MaxAttempts,
		BatchSize:   a.cfg.Outbox.BatchSize,
		MinAge:      a.cfg.Outbox.RelayInterval,
	})
}

// Close releases connections in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
