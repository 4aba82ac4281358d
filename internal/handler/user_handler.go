package handler

import (
	"net/http"
	"strconv"
	"strings"
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

// CreateUserRequest registers a back-office user
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
	Name  string `json:"name" validate:"max=150"`
	Role  string `json:"role" validate:"required,oneof=ADMIN MANAGER STAFF"`
}

// UpdateUserRequest changes a user's name, role or active flag
type UpdateUserRequest struct {
	Name   string `json:"name" validate:"max=150"`
	Role   string `json:"role" validate:"required,oneof=ADMIN MANAGER STAFF"`
	Active *bool  `json:"active"`
}

// CreateUser adds a user to the notification directory
func (h *Handler) CreateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToUpper(req.Role)
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	db := h.DB.WithContext(c.Request().Context())
	var existing int64
	if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return dbError(c, err, "user")
	}
	if existing > 0 {
		log.Warn("User already exists", zap.String("email", req.Email))
		return apperror.Conflict(apperror.CodeConflict, "user with this email already exists")
	}

	user := model.User{Email: req.Email, Name: req.Name, Role: req.Role, Active: true}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&user).Error; err != nil {
		return dbError(c, err, "user")
	}

	log.Info("User created",
		zap.Uint("id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, user)
}

// ListUsers lists users by email, optionally by role or active flag
func (h *Handler) ListUsers(c echo.Context) error {
	page, limit := pagination(c)

	role := strings.ToUpper(c.QueryParam("role"))
	active := c.QueryParam("active")
	scope := func(db *gorm.DB) *gorm.DB {
		if role != "" {
			db = db.Where("role = ?", role)
		}
		if v, err := strconv.ParseBool(active); err == nil {
			db = db.Where("active = ?", v)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var total int64
	if err := db.Model(&model.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return dbError(c, err, "user")
	}

	var users []model.User
	err := db.Scopes(scope).
		Order("email asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error
	if err != nil {
		return dbError(c, err, "user")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":      users,
		"pagination": pageInfo(page, limit, total),
	})
}

// UpdateUser changes a user's name, role or active flag
func (h *Handler) UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Role = strings.ToUpper(req.Role)
	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := h.DB.WithContext(c.Request().Context())

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		return dbError(c, err, "user")
	}

	updates := map[string]interface{}{
		"name": req.Name,
		"role": req.Role,
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return dbError(c, err, "user")
	}
	if err := db.First(&user, id).Error; err != nil {
		return dbError(c, err, "user")
	}

	log.Info("User updated",
		zap.Uint("id", user.ID),
		zap.String("role", user.Role),
		zap.Bool("active", user.Active))
	return c.JSON(http.StatusOK, user)
}
