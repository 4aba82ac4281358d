package handler

import (
	"net/http"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/validate"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnitRequest defines the structure for unit creation/update requests.
// OCCUPIED is never set by hand; it follows the unit's leases.
type UnitRequest struct {
	PropertyID      uint             `json:"property_id" validate:"required"`
	UnitNumber      string           `json:"unit_number" validate:"required,max=50"`
	TotalArea       float64          `json:"total_area" validate:"gte=0"`
	TotalRent       float64          `json:"total_rent" validate:"gte=0"`
	Status          model.UnitStatus `json:"status" validate:"omitempty,oneof=VACANT MAINTENANCE RESERVED"`
	PropertyTitleID *uint            `json:"property_title_id"`
}

func (h *Handler) checkUnitRequest(c echo.Context, db *gorm.DB, req UnitRequest, unitID uint) error {
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	var property model.Property
	if err := db.Select("id").First(&property, req.PropertyID).Error; err != nil {
		return dbError(c, err, "property")
	}

	var dup int64
	err := db.Model(&model.Unit{}).
		Where("property_id = ? AND unit_number = ? AND id <> ?", req.PropertyID, req.UnitNumber, unitID).
		Count(&dup).Error
	if err != nil {
		return dbError(c, err, "unit")
	}
	if dup > 0 {
		return apperror.Conflict(apperror.CodeConflict, "unit number already exists in this property")
	}
	return nil
}

// CreateUnit creates a unit inside a property
func (h *Handler) CreateUnit(c echo.Context) error {
	log := logger.FromContext(c)

	var req UnitRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	db := h.DB.WithContext(c.Request().Context())
	if err := h.checkUnitRequest(c, db, req, 0); err != nil {
		return err
	}

	unit := model.Unit{
		PropertyID:      req.PropertyID,
		UnitNumber:      req.UnitNumber,
		TotalArea:       req.TotalArea,
		TotalRent:       req.TotalRent,
		Status:          req.Status,
		PropertyTitleID: req.PropertyTitleID,
	}
	if unit.Status == "" {
		unit.Status = model.UnitVacant
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Omit("Property").Create(&unit).Error; err != nil {
		return dbError(c, err, "unit")
	}

	log.Info("Unit created",
		zap.Uint("id", unit.ID),
		zap.Uint("property_id", unit.PropertyID),
		zap.String("unit_number", unit.UnitNumber))
	return c.JSON(http.StatusCreated, unit)
}

// GetUnit returns a unit with its property
func (h *Handler) GetUnit(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var unit model.Unit
	if err := h.DB.WithContext(c.Request().Context()).Preload("Property").First(&unit, id).Error; err != nil {
		return dbError(c, err, "unit")
	}
	return c.JSON(http.StatusOK, unit)
}

// ListUnits lists units filtered by property_id or status
func (h *Handler) ListUnits(c echo.Context) error {
	page, limit := pagination(c)

	propertyID, err := queryUint(c, "property_id")
	if err != nil {
		return err
	}
	status := model.UnitStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return apperror.Validation("invalid status")
	}

	scope := func(db *gorm.DB) *gorm.DB {
		if propertyID != 0 {
			db = db.Where("property_id = ?", propertyID)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var total int64
	if err := db.Model(&model.Unit{}).Scopes(scope).Count(&total).Error; err != nil {
		return dbError(c, err, "unit")
	}

	var units []model.Unit
	err = db.Scopes(scope).
		Preload("Property").
		Order("property_id asc, unit_number asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&units).Error
	if err != nil {
		return dbError(c, err, "unit")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"units":      units,
		"pagination": pageInfo(page, limit, total),
	})
}

// UpdateUnit replaces a unit's fields. A manual status change is refused
// while an ACTIVE lease covers the unit.
func (h *Handler) UpdateUnit(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req UnitRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	db := h.DB.WithContext(c.Request().Context())

	var unit model.Unit
	if err := db.First(&unit, id).Error; err != nil {
		return dbError(c, err, "unit")
	}
	if err := h.checkUnitRequest(c, db, req, id); err != nil {
		return err
	}

	status := unit.Status
	if req.Status != "" && req.Status != unit.Status {
		var active int64
		err := db.Model(&model.LeaseUnit{}).
			Joins("JOIN leases ON leases.id = lease_units.lease_id").
			Where("lease_units.unit_id = ? AND leases.status = ?", id, model.LeaseActive).
			Count(&active).Error
		if err != nil {
			return dbError(c, err, "unit")
		}
		if active > 0 {
			log.Warn("Manual status change on leased unit",
				zap.Uint("id", id),
				zap.String("requested", string(req.Status)))
			return apperror.Conflict(apperror.CodeConflict, "unit is under an active lease")
		}
		status = req.Status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := db.Model(&model.Unit{}).
		Where("id = ? AND version = ?", id, unit.Version).
		Updates(map[string]interface{}{
			"property_id":       req.PropertyID,
			"unit_number":       req.UnitNumber,
			"total_area":        req.TotalArea,
			"total_rent":        req.TotalRent,
			"status":            status,
			"property_title_id": req.PropertyTitleID,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return dbError(c, res.Error, "unit")
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict(apperror.CodeUnitStatusConflict, "unit changed concurrently, retry the update")
	}

	if err := db.Preload("Property").First(&unit, id).Error; err != nil {
		return dbError(c, err, "unit")
	}
	log.Info("Unit updated",
		zap.Uint("id", unit.ID),
		zap.String("status", string(unit.Status)))
	return c.JSON(http.StatusOK, unit)
}

// DeleteUnit removes a unit no lease refers to
func (h *Handler) DeleteUnit(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var unit model.Unit
	if err := db.First(&unit, id).Error; err != nil {
		return dbError(c, err, "unit")
	}

	var refs int64
	if err := db.Model(&model.LeaseUnit{}).Where("unit_id = ?", id).Count(&refs).Error; err != nil {
		return dbError(c, err, "unit")
	}
	if refs > 0 {
		return apperror.Conflict(apperror.CodeConflict, "unit is referenced by a lease")
	}

	if err := db.Delete(&unit).Error; err != nil {
		return dbError(c, err, "unit")
	}

	log.Info("Unit deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Unit deleted successfully",
	})
}
