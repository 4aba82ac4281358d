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

// PropertyRequest defines the structure for property creation/update requests
type PropertyRequest struct {
	Name         string `json:"name" validate:"required,max=150"`
	Address      string `json:"address"`
	City         string `json:"city" validate:"max=100"`
	PropertyType string `json:"property_type" validate:"max=50"`
}

// CreateProperty creates a property
func (h *Handler) CreateProperty(c echo.Context) error {
	log := logger.FromContext(c)

	var req PropertyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	property := model.Property{
		Name:         req.Name,
		Address:      req.Address,
		City:         req.City,
		PropertyType: req.PropertyType,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.DB.WithContext(c.Request().Context()).Create(&property).Error; err != nil {
		return dbError(c, err, "property")
	}

	log.Info("Property created",
		zap.Uint("id", property.ID),
		zap.String("name", property.Name))
	return c.JSON(http.StatusCreated, property)
}

// GetProperty returns a property with its units
func (h *Handler) GetProperty(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var property model.Property
	err = h.DB.WithContext(c.Request().Context()).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("unit_number asc") }).
		First(&property, id).Error
	if err != nil {
		return dbError(c, err, "property")
	}
	return c.JSON(http.StatusOK, property)
}

// ListProperties lists properties by name, optionally filtered by city
func (h *Handler) ListProperties(c echo.Context) error {
	page, limit := pagination(c)
	city := c.QueryParam("city")
	scope := func(db *gorm.DB) *gorm.DB {
		if city != "" {
			db = db.Where("city = ?", city)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var total int64
	if err := db.Model(&model.Property{}).Scopes(scope).Count(&total).Error; err != nil {
		return dbError(c, err, "property")
	}

	var properties []model.Property
	err := db.Scopes(scope).
		Order("name asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&properties).Error
	if err != nil {
		return dbError(c, err, "property")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"properties": properties,
		"pagination": pageInfo(page, limit, total),
	})
}

// UpdateProperty replaces a property's fields
func (h *Handler) UpdateProperty(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req PropertyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var property model.Property
	if err := db.First(&property, id).Error; err != nil {
		return dbError(c, err, "property")
	}
	err = db.Model(&property).Updates(map[string]interface{}{
		"name":          req.Name,
		"address":       req.Address,
		"city":          req.City,
		"property_type": req.PropertyType,
	}).Error
	if err != nil {
		return dbError(c, err, "property")
	}
	if err := db.First(&property, id).Error; err != nil {
		return dbError(c, err, "property")
	}

	log.Info("Property updated", zap.Uint("id", property.ID))
	return c.JSON(http.StatusOK, property)
}

// DeleteProperty removes a property that has no units
func (h *Handler) DeleteProperty(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var property model.Property
	if err := db.First(&property, id).Error; err != nil {
		return dbError(c, err, "property")
	}

	var units int64
	if err := db.Model(&model.Unit{}).Where("property_id = ?", id).Count(&units).Error; err != nil {
		return dbError(c, err, "property")
	}
	if units > 0 {
		log.Warn("Property still has units", zap.Uint("id", id), zap.Int64("units", units))
		return apperror.Conflict(apperror.CodeConflict, "property still has units")
	}

	if err := db.Delete(&property).Error; err != nil {
		return dbError(c, err, "property")
	}

	log.Info("Property deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Property deleted successfully",
	})
}
