// Package lease runs the lease lifecycle: create, update, terminate and
// delete a lease together with the unit-status cascade, each in one
// transaction. Audit, notification and event side effects are written to
// the outbox inside that transaction and delivered after commit.
package lease

import (
	"context"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/outbox"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID uint
	Email  string
}

// UnitInput attaches one unit to a new lease
type UnitInput struct {
	UnitID     uint    `json:"unit_id" validate:"required"`
	RentAmount float64 `json:"rent_amount" validate:"gte=0"`
}

// CreateInput is the payload of Create. A zero TotalRentAmount defaults
// to the sum of the unit rents.
type CreateInput struct {
	TenantID        uint              `json:"tenant_id" validate:"required"`
	StartDate       time.Time         `json:"start_date" validate:"required"`
	EndDate         time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	TotalRentAmount float64           `json:"total_rent_amount" validate:"gte=0"`
	SecurityDeposit float64           `json:"security_deposit" validate:"gte=0"`
	Status          model.LeaseStatus `json:"status" validate:"omitempty,oneof=PENDING ACTIVE"`
	Units           []UnitInput       `json:"units" validate:"required,min=1,dive"`
}

// UpdateInput replaces the scalar fields of a lease. Attached units cannot
// be changed. The termination fields are only accepted with status
// TERMINATED and are required when the update terminates the lease.
type UpdateInput struct {
	StartDate         time.Time         `json:"start_date" validate:"required"`
	EndDate           time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	TotalRentAmount   float64           `json:"total_rent_amount" validate:"gte=0"`
	SecurityDeposit   float64           `json:"security_deposit" validate:"gte=0"`
	Status            model.LeaseStatus `json:"status" validate:"required,oneof=PENDING ACTIVE TERMINATED EXPIRED"`
	TerminationDate   *time.Time        `json:"termination_date,omitempty"`
	TerminationReason string            `json:"termination_reason,omitempty"`
}

// TerminateInput is the payload of Terminate
type TerminateInput struct {
	TerminationDate time.Time `json:"termination_date" validate:"required"`
	Reason          string    `json:"reason" validate:"required"`
}

// Service runs lease operations against db. dispatcher delivers the outbox
// messages a committed operation produced; when nil they are left for the
// relay.
type Service struct {
	db         *gorm.DB
	dispatcher *outbox.Dispatcher
}

func NewService(db *gorm.DB, dispatcher *outbox.Dispatcher) *Service {
	return &Service{db: db, dispatcher: dispatcher}
}

// deliver runs post-commit side effects. They outlive a cancelled request.
func (s *Service) deliver(ctx context.Context, msgs []model.OutboxMessage) {
	if s.dispatcher == nil || len(msgs) == 0 {
		return
	}
	s.dispatcher.Deliver(context.WithoutCancel(ctx), msgs)
}

// fail records a failed operation. AppErrors pass through; anything else
// is logged and replaced by a generic error carrying code.
func (s *Service) fail(ctx context.Context, op, code, message string, err error) error {
	prometheus.RecordLeaseOperation(op, err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		logger.FromCtx(ctx).Warn("Lease operation rejected",
			zap.String("operation", op),
			zap.String("code", appErr.Code),
			zap.String("reason", appErr.Message))
		return appErr
	}

	logger.FromCtx(ctx).Error("Lease operation failed",
		zap.String("operation", op),
		zap.Error(err))
	return apperror.Internal(code, message, err)
}

// lookupErr maps a missing row to a 404 and wraps anything else
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(what + " not found")
	}
	return errors.Wrapf(err, "load %s", what)
}

// load reads the full aggregate: tenant, lease units, units and properties
func load(tx *gorm.DB, id uint) (*model.Lease, error) {
	var lease model.Lease
	err := tx.
		Preload("Tenant").
		Preload("LeaseUnits", func(db *gorm.DB) *gorm.DB {
			return db.Order("lease_units.id asc")
		}).
		Preload("LeaseUnits.Unit.Property").
		First(&lease, id).Error
	if err != nil {
		return nil, lookupErr(err, "lease")
	}
	return &lease, nil
}

func unitIDs(lease *model.Lease) []uint {
	ids := make([]uint, 0, len(lease.LeaseUnits))
	for _, lu := range lease.LeaseUnits {
		ids = append(ids, lu.UnitID)
	}
	return ids
}
