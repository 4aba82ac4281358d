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

// TenantRequest defines the structure for tenant creation/update requests
type TenantRequest struct {
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"omitempty,email,max=100"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address"`
}

// CreateTenant creates a tenant
func (h *Handler) CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)

	var req TenantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	tenant := model.Tenant{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.DB.WithContext(c.Request().Context()).Create(&tenant).Error; err != nil {
		return dbError(c, err, "tenant")
	}

	log.Info("Tenant created",
		zap.Uint("id", tenant.ID),
		zap.String("name", tenant.Name))
	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant returns a tenant
func (h *Handler) GetTenant(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenant model.Tenant
	if err := h.DB.WithContext(c.Request().Context()).First(&tenant, id).Error; err != nil {
		return dbError(c, err, "tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

// ListTenants lists tenants by name; q filters by a name fragment
func (h *Handler) ListTenants(c echo.Context) error {
	page, limit := pagination(c)
	q := c.QueryParam("q")
	scope := func(db *gorm.DB) *gorm.DB {
		if q != "" {
			db = db.Where("LOWER(name) LIKE LOWER(?)", "%"+q+"%")
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var total int64
	if err := db.Model(&model.Tenant{}).Scopes(scope).Count(&total).Error; err != nil {
		return dbError(c, err, "tenant")
	}

	var tenants []model.Tenant
	err := db.Scopes(scope).
		Order("name asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&tenants).Error
	if err != nil {
		return dbError(c, err, "tenant")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenants":    tenants,
		"pagination": pageInfo(page, limit, total),
	})
}

// UpdateTenant replaces a tenant's fields
func (h *Handler) UpdateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req TenantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var tenant model.Tenant
	if err := db.First(&tenant, id).Error; err != nil {
		return dbError(c, err, "tenant")
	}
	err = db.Model(&tenant).Updates(map[string]interface{}{
		"name":    req.Name,
		"email":   req.Email,
		"phone":   req.Phone,
		"address": req.Address,
	}).Error
	if err != nil {
		return dbError(c, err, "tenant")
	}
	if err := db.First(&tenant, id).Error; err != nil {
		return dbError(c, err, "tenant")
	}

	log.Info("Tenant updated", zap.Uint("id", tenant.ID))
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant removes a tenant that holds no leases
func (h *Handler) DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var tenant model.Tenant
	if err := db.First(&tenant, id).Error; err != nil {
		return dbError(c, err, "tenant")
	}

	var leases int64
	if err := db.Model(&model.Lease{}).Where("tenant_id = ?", id).Count(&leases).Error; err != nil {
		return dbError(c, err, "tenant")
	}
	if leases > 0 {
		return apperror.Conflict(apperror.CodeConflict, "tenant still has leases")
	}

	if err := db.Delete(&tenant).Error; err != nil {
		return dbError(c, err, "tenant")
	}

	log.Info("Tenant deleted", zap.Uint("id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant deleted successfully",
	})
}
