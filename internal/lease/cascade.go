package lease

import (
	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// syncUnitStatuses recomputes the status of every unit in ids from lease
// membership: OCCUPIED while any ACTIVE lease covers it, VACANT otherwise.
// Each write is guarded by the unit version; a concurrent writer aborts
// the transaction with UNIT_STATUS_CONFLICT.
func syncUnitStatuses(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var covered []uint
	err := tx.Model(&model.LeaseUnit{}).
		Joins("JOIN leases ON leases.id = lease_units.lease_id").
		Where("lease_units.unit_id IN ? AND leases.status = ?", ids, model.LeaseActive).
		Pluck("lease_units.unit_id", &covered).Error
	if err != nil {
		return errors.Wrap(err, "load active unit coverage")
	}
	occupied := make(map[uint]bool, len(covered))
	for _, id := range covered {
		occupied[id] = true
	}

	var units []model.Unit
	if err := tx.Select("id", "status", "version").Where("id IN ?", ids).Order("id asc").Find(&units).Error; err != nil {
		return errors.Wrap(err, "load units")
	}

	for _, u := range units {
		want := model.UnitVacant
		if occupied[u.ID] {
			want = model.UnitOccupied
		}

		if err := setUnitStatus(tx, u, want); err != nil {
			return err
		}
	}
	return nil
}

// setUnitStatus writes want if u still has the version it was read with
func setUnitStatus(tx *gorm.DB, u model.Unit, want model.UnitStatus) error {
	res := tx.Model(&model.Unit{}).
		Where("id = ? AND version = ?", u.ID, u.Version).
		Updates(map[string]interface{}{
			"status":  want,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update unit %d status", u.ID)
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict(apperror.CodeUnitStatusConflict,
			"unit status changed concurrently, retry the operation")
	}
	return nil
}
