package lease

import (
	"context"
	"math"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/validate"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Create inserts a lease and one lease unit per input unit. When the lease
// starts ACTIVE its units become OCCUPIED.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*model.Lease, error) {
	const op = "create"
	if actor.UserID == 0 {
		return nil, s.fail(ctx, op, apperror.CodeLeaseCreate, "", apperror.Unauthorized())
	}
	if err := validate.Struct(ctx, in); err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseCreate, "", err)
	}
	if in.Status == "" {
		in.Status = model.LeasePending
	}

	ids := make([]uint, 0, len(in.Units))
	seen := make(map[uint]bool, len(in.Units))
	var unitSum float64
	for _, u := range in.Units {
		if seen[u.UnitID] {
			return nil, s.fail(ctx, op, apperror.CodeLeaseCreate, "",
				apperror.Validation("unit listed more than once"))
		}
		seen[u.UnitID] = true
		ids = append(ids, u.UnitID)
		unitSum += u.RentAmount
	}

	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("lease_create")(time.Now())

	var (
		lease *model.Lease
		msgs  []model.OutboxMessage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := tx.First(&tenant, in.TenantID).Error; err != nil {
			return lookupErr(err, "tenant")
		}

		var found int64
		if err := tx.Model(&model.Unit{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return errors.Wrap(err, "count units")
		}
		if int(found) != len(ids) {
			return apperror.NotFound("unit not found")
		}

		row := model.Lease{
			TenantID:        in.TenantID,
			StartDate:       in.StartDate,
			EndDate:         in.EndDate,
			TotalRentAmount: in.TotalRentAmount,
			SecurityDeposit: in.SecurityDeposit,
			Status:          in.Status,
		}
		if row.TotalRentAmount == 0 {
			row.TotalRentAmount = unitSum
		} else if !sameAmount(row.TotalRentAmount, unitSum) {
			log.Warn("Lease total differs from unit rents",
				zap.Float64("total_rent_amount", row.TotalRentAmount),
				zap.Float64("unit_rent_sum", unitSum))
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return errors.Wrap(err, "insert lease")
		}

		leaseUnits := make([]model.LeaseUnit, 0, len(in.Units))
		for _, u := range in.Units {
			leaseUnits = append(leaseUnits, model.LeaseUnit{
				LeaseID:    row.ID,
				UnitID:     u.UnitID,
				RentAmount: u.RentAmount,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&leaseUnits).Error; err != nil {
			return errors.Wrap(err, "insert lease units")
		}

		if row.Status == model.LeaseActive {
			if err := syncUnitStatuses(tx, ids); err != nil {
				return err
			}
		}

		var err error
		if lease, err = load(tx, row.ID); err != nil {
			return err
		}
		msgs, err = enqueue(tx, actor.UserID, lease, createdIntent.with(in))
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseCreate, "failed to create lease", err)
	}

	s.deliver(ctx, msgs)
	prometheus.RecordLeaseOperation(op, nil)
	log.Info("Lease created",
		zap.Uint("lease_id", lease.ID),
		zap.Uint("tenant_id", lease.TenantID),
		zap.String("status", string(lease.Status)),
		zap.Int("units", len(lease.LeaseUnits)))
	return lease, nil
}

// Update replaces the scalar fields of lease id and recomputes the status
// of its attached units. TERMINATED and EXPIRED leases keep their status.
func (s *Service) Update(ctx context.Context, actor Actor, id uint, in UpdateInput) (*model.Lease, error) {
	const op = "update"
	if actor.UserID == 0 {
		return nil, s.fail(ctx, op, apperror.CodeLeaseUpdate, "", apperror.Unauthorized())
	}
	if err := validate.Struct(ctx, in); err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseUpdate, "", err)
	}

	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("lease_update")(time.Now())

	var (
		lease *model.Lease
		msgs  []model.OutboxMessage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := load(tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(current, in); err != nil {
			return err
		}

		total := in.TotalRentAmount
		if total == 0 {
			total = current.UnitRentSum()
		} else if !sameAmount(total, current.UnitRentSum()) {
			log.Warn("Lease total differs from unit rents",
				zap.Uint("lease_id", id),
				zap.Float64("total_rent_amount", total),
				zap.Float64("unit_rent_sum", current.UnitRentSum()))
		}

		fields := map[string]interface{}{
			"start_date":        in.StartDate,
			"end_date":          in.EndDate,
			"total_rent_amount": total,
			"security_deposit":  in.SecurityDeposit,
			"status":            in.Status,
		}
		if in.TerminationDate != nil {
			fields["termination_date"] = *in.TerminationDate
		}
		if in.TerminationReason != "" {
			fields["termination_reason"] = in.TerminationReason
		}
		err = tx.Model(&model.Lease{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			return errors.Wrap(err, "update lease")
		}

		if err := syncUnitStatuses(tx, unitIDs(current)); err != nil {
			return err
		}

		if lease, err = load(tx, id); err != nil {
			return err
		}
		msgs, err = enqueue(tx, actor.UserID, lease, updatedIntent.with(in))
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseUpdate, "failed to update lease", err)
	}

	s.deliver(ctx, msgs)
	prometheus.RecordLeaseOperation(op, nil)
	log.Info("Lease updated",
		zap.Uint("lease_id", lease.ID),
		zap.String("status", string(lease.Status)))
	return lease, nil
}

// Terminate marks lease id TERMINATED and frees its units. Terminating a
// terminated lease succeeds and records the new date and reason.
func (s *Service) Terminate(ctx context.Context, actor Actor, id uint, in TerminateInput) (*model.Lease, error) {
	const op = "terminate"
	if actor.UserID == 0 {
		return nil, s.fail(ctx, op, apperror.CodeLeaseTerminate, "", apperror.Unauthorized())
	}
	if err := validate.Struct(ctx, in); err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseTerminate, "", err)
	}

	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("lease_terminate")(time.Now())

	var (
		lease *model.Lease
		msgs  []model.OutboxMessage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := load(tx, id)
		if err != nil {
			return err
		}
		if in.TerminationDate.Before(current.StartDate) {
			return apperror.Validation("termination_date must not be before start_date")
		}

		err = tx.Model(&model.Lease{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":             model.LeaseTerminated,
			"termination_date":   in.TerminationDate,
			"termination_reason": in.Reason,
		}).Error
		if err != nil {
			return errors.Wrap(err, "terminate lease")
		}

		if err := syncUnitStatuses(tx, unitIDs(current)); err != nil {
			return err
		}

		if lease, err = load(tx, id); err != nil {
			return err
		}
		msgs, err = enqueue(tx, actor.UserID, lease, terminatedIntent.with(map[string]interface{}{
			"status":             model.LeaseTerminated,
			"previous_status":    current.Status,
			"termination_date":   in.TerminationDate,
			"termination_reason": in.Reason,
		}))
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, apperror.CodeLeaseTerminate, "failed to terminate lease", err)
	}

	s.deliver(ctx, msgs)
	prometheus.RecordLeaseOperation(op, nil)
	log.Info("Lease terminated",
		zap.Uint("lease_id", lease.ID),
		zap.String("reason", in.Reason))
	return lease, nil
}

// Delete removes lease id and its lease units and recomputes the status of
// the units it covered
func (s *Service) Delete(ctx context.Context, actor Actor, id uint) error {
	const op = "delete"
	if actor.UserID == 0 {
		return s.fail(ctx, op, apperror.CodeLeaseDelete, "", apperror.Unauthorized())
	}

	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("lease_delete")(time.Now())

	var msgs []model.OutboxMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lease, err := load(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Where("lease_id = ?", id).Delete(&model.LeaseUnit{}).Error; err != nil {
			return errors.Wrap(err, "delete lease units")
		}
		if err := tx.Delete(&model.Lease{}, id).Error; err != nil {
			return errors.Wrap(err, "delete lease")
		}

		if err := syncUnitStatuses(tx, unitIDs(lease)); err != nil {
			return err
		}

		msgs, err = enqueue(tx, actor.UserID, lease, deletedIntent.with(map[string]interface{}{
			"tenant_id":         lease.TenantID,
			"status":            lease.Status,
			"total_rent_amount": lease.TotalRentAmount,
			"unit_ids":          unitIDs(lease),
		}))
		return err
	})
	if err != nil {
		return s.fail(ctx, op, apperror.CodeLeaseDelete, "failed to delete lease", err)
	}

	s.deliver(ctx, msgs)
	prometheus.RecordLeaseOperation(op, nil)
	log.Info("Lease deleted", zap.Uint("lease_id", id))
	return nil
}

// checkTransition guards the lease state machine. A closed lease keeps its
// status, and a lease only becomes TERMINATED together with its
// termination date and reason.
func checkTransition(current *model.Lease, in UpdateInput) error {
	if current.Status.Closed() && in.Status != current.Status {
		return apperror.Conflict(apperror.CodeLeaseState,
			"lease is "+string(current.Status)+" and cannot become "+string(in.Status))
	}

	if in.Status != model.LeaseTerminated {
		if in.TerminationDate != nil || in.TerminationReason != "" {
			return apperror.Validation("termination_date and termination_reason require status TERMINATED")
		}
		return nil
	}
	if current.Status != model.LeaseTerminated && (in.TerminationDate == nil || in.TerminationReason == "") {
		return apperror.Validation("termination_date and termination_reason are required to terminate a lease")
	}

	terminated := current.TerminationDate
	if in.TerminationDate != nil {
		terminated = in.TerminationDate
	}
	if terminated != nil && terminated.Before(in.StartDate) {
		return apperror.Validation("termination_date must not be before start_date")
	}
	return nil
}

// sameAmount compares money to the cent
func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
