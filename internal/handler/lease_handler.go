package handler

import (
	"net/http"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/lease"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LeaseRequest is the body of lease create and update requests.
// Units are only read on create, the termination fields only on update.
type LeaseRequest struct {
	TenantID        uint              `json:"tenant_id"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	TotalRentAmount float64           `json:"total_rent_amount"`
	SecurityDeposit float64           `json:"security_deposit"`
	Status          model.LeaseStatus `json:"status"`
	Units           []lease.UnitInput `json:"units"`

	TerminationDate   string `json:"termination_date"`
	TerminationReason string `json:"termination_reason"`
}

// TerminateRequest is the body of a termination request
type TerminateRequest struct {
	TerminationDate string `json:"termination_date"`
	Reason          string `json:"reason"`
}

// CreateLease creates a multi-unit lease
func (h *Handler) CreateLease(c echo.Context) error {
	log := logger.FromContext(c)

	var req LeaseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return err
	}

	log.Info("Lease creation request",
		zap.Uint("tenant_id", req.TenantID),
		zap.Int("units", len(req.Units)))

	created, err := h.Leases.Create(c.Request().Context(), actor(c), lease.CreateInput{
		TenantID:        req.TenantID,
		StartDate:       start,
		EndDate:         end,
		TotalRentAmount: req.TotalRentAmount,
		SecurityDeposit: req.SecurityDeposit,
		Status:          req.Status,
		Units:           req.Units,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetLease returns one lease with its tenant and units
func (h *Handler) GetLease(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	l, err := h.Leases.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// ListLeases lists leases filtered by status, tenant_id or unit_id
func (h *Handler) ListLeases(c echo.Context) error {
	page, limit := pagination(c)

	f := lease.Filter{Page: page, Limit: limit}
	if s := c.QueryParam("status"); s != "" {
		f.Status = model.LeaseStatus(s)
		if !f.Status.Valid() {
			return apperror.Validation("invalid status")
		}
	}
	var err error
	if f.TenantID, err = queryUint(c, "tenant_id"); err != nil {
		return err
	}
	if f.UnitID, err = queryUint(c, "unit_id"); err != nil {
		return err
	}

	leases, total, err := h.Leases.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"leases":     leases,
		"pagination": pageInfo(page, limit, total),
	})
}

// UpdateLease replaces the dates, amounts and status of a lease
func (h *Handler) UpdateLease(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req LeaseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if len(req.Units) > 0 {
		return apperror.Validation("units cannot be changed on an existing lease")
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return err
	}

	in := lease.UpdateInput{
		StartDate:         start,
		EndDate:           end,
		TotalRentAmount:   req.TotalRentAmount,
		SecurityDeposit:   req.SecurityDeposit,
		Status:            req.Status,
		TerminationReason: req.TerminationReason,
	}
	if req.TerminationDate != "" {
		date, err := parseDate("termination_date", req.TerminationDate)
		if err != nil {
			return err
		}
		in.TerminationDate = &date
	}

	updated, err := h.Leases.Update(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// TerminateLease ends a lease and frees its units
func (h *Handler) TerminateLease(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req TerminateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate("termination_date", req.TerminationDate)
	if err != nil {
		return err
	}

	terminated, err := h.Leases.Terminate(c.Request().Context(), actor(c), id, lease.TerminateInput{
		TerminationDate: date,
		Reason:          req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, terminated)
}

// DeleteLease removes a lease
func (h *Handler) DeleteLease(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Leases.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Lease deleted successfully",
	})
}
