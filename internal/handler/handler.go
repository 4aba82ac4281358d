// Package handler exposes the lease back office over HTTP.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/audit"
	"github.com/suteetoe/leasedesk/internal/lease"
	"github.com/suteetoe/leasedesk/internal/notification"
	"github.com/suteetoe/leasedesk/internal/report"
	"github.com/suteetoe/leasedesk/pkg/database"
	"github.com/suteetoe/leasedesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds the services the HTTP endpoints call
type Handler struct {
	DB      *gorm.DB
	Leases  *lease.Service
	Inbox   *notification.Inbox
	Audit   *audit.Recorder
	Reports *report.Reporter
}

func New(db *gorm.DB, leases *lease.Service) *Handler {
	return &Handler{
		DB:      db,
		Leases:  leases,
		Inbox:   notification.NewInbox(db),
		Audit:   audit.NewRecorder(db),
		Reports: report.NewReporter(db),
	}
}

// ErrorHandler renders every error as {"error": message, "code": code}
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, echo.Map{"error": fmt.Sprint(he.Message)})
		return
	}

	appErr := apperror.As(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c).Error("Request failed",
			zap.String("code", appErr.Code),
			zap.Error(err))
	}
	_ = c.JSON(appErr.StatusCode, appErr)
}

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	status := "healthy"
	code := http.StatusOK
	if err := database.Ping(c.Request().Context(), h.DB); err != nil {
		logger.FromCtx(c.Request().Context()).Warn("Database ping failed", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":  status,
		"service": "leasedesk",
	})
}

// actor reads the acting user set by AuthMiddleware
func actor(c echo.Context) lease.Actor {
	userID, _ := c.Get("user_id").(uint)
	email, _ := c.Get("email").(string)
	return lease.Actor{UserID: userID, Email: email}
}

func userID(c echo.Context) (uint, error) {
	id, ok := c.Get("user_id").(uint)
	if !ok || id == 0 {
		return 0, apperror.Unauthorized()
	}
	return id, nil
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid " + name)
	}
	return uint(id), nil
}

func queryUint(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperror.Validation("invalid " + name)
	}
	return uint(v), nil
}

// pagination reads page and limit the way every list endpoint does
func pagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func pageInfo(page, limit int, total int64) echo.Map {
	return echo.Map{
		"current_page": page,
		"limit":        limit,
		"total":        total,
		"total_pages":  (int(total) + limit - 1) / limit,
	}
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		logger.FromContext(c).Warn("Invalid request data", zap.Error(err))
		return apperror.Validation("invalid request data")
	}
	return nil
}

// parseDate accepts 2006-01-02 or RFC 3339. Empty input is the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperror.Validation(field + " must be a date (YYYY-MM-DD)")
}

// dbError maps a missing row to 404 and hides anything else.
// AppErrors pass through.
func dbError(c echo.Context, err error, what string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(what + " not found")
	}
	logger.FromContext(c).Error("Database operation failed", zap.String("entity", what), zap.Error(err))
	return apperror.Internal(apperror.CodeInternal, "failed to process "+what, err)
}
