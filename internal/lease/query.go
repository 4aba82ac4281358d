package lease

import (
	"context"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Get returns the full aggregate of lease id
func (s *Service) Get(ctx context.Context, id uint) (*model.Lease, error) {
	defer prometheus.TrackDBOperation("select")(time.Now())
	lease, err := load(s.db.WithContext(ctx), id)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		logger.FromCtx(ctx).Error("Failed to load lease", zap.Uint("lease_id", id), zap.Error(err))
		return nil, apperror.Internal(apperror.CodeInternal, "failed to load lease", err)
	}
	return lease, nil
}

// Filter narrows List
type Filter struct {
	Status   model.LeaseStatus
	TenantID uint
	UnitID   uint
	Page     int
	Limit    int
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("leases.status = ?", f.Status)
	}
	if f.TenantID != 0 {
		db = db.Where("leases.tenant_id = ?", f.TenantID)
	}
	if f.UnitID != 0 {
		db = db.Where("leases.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&model.LeaseUnit{}).Select("lease_id").Where("unit_id = ?", f.UnitID))
	}
	return db
}

// List returns one page of leases, newest first, and the total count
func (s *Service) List(ctx context.Context, f Filter) ([]model.Lease, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	defer prometheus.TrackDBOperation("select")(time.Now())
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Lease{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(apperror.CodeInternal, "failed to list leases", err)
	}

	var leases []model.Lease
	err := db.Scopes(f.scope).
		Preload("Tenant").
		Preload("LeaseUnits.Unit.Property").
		Order("leases.id desc").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&leases).Error
	if err != nil {
		return nil, 0, apperror.Internal(apperror.CodeInternal, "failed to list leases", err)
	}
	return leases, total, nil
}

// ExpireDue moves ACTIVE leases whose end date is before now to EXPIRED,
// one transaction per lease, and reports how many expired. A lease that
// fails is logged and left for the next run.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromCtx(ctx)

	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&model.Lease{}).
		Where("status = ? AND end_date < ?", model.LeaseActive, now).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, errors.Wrap(err, "load due leases")
	}

	expired := 0
	for _, id := range ids {
		if err := s.expire(ctx, id); err != nil {
			prometheus.RecordLeaseOperation("expire", err)
			log.Error("Failed to expire lease", zap.Uint("lease_id", id), zap.Error(err))
			continue
		}
		prometheus.RecordLeaseOperation("expire", nil)
		expired++
	}

	if len(ids) > 0 {
		log.Info("Expired due leases", zap.Int("due", len(ids)), zap.Int("expired", expired))
	}
	return expired, nil
}

func (s *Service) expire(ctx context.Context, id uint) error {
	var msgs []model.OutboxMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Lease{}).
			Where("id = ? AND status = ?", id, model.LeaseActive).
			Update("status", model.LeaseExpired)
		if res.Error != nil {
			return errors.Wrap(res.Error, "expire lease")
		}
		if res.RowsAffected == 0 {
			return nil
		}

		lease, err := load(tx, id)
		if err != nil {
			return err
		}
		if err := syncUnitStatuses(tx, unitIDs(lease)); err != nil {
			return err
		}

		msgs, err = enqueue(tx, 0, lease, expiredIntent.with(map[string]interface{}{
			"status":          model.LeaseExpired,
			"previous_status": model.LeaseActive,
			"end_date":        lease.EndDate,
		}))
		return err
	})
	if err != nil {
		return err
	}

	s.deliver(ctx, msgs)
	return nil
}
