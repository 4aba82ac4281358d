package handler

import (
	"net/http"

	"github.com/suteetoe/leasedesk/internal/audit"

	"github.com/labstack/echo/v4"
)

// ListAuditLogs lists audit entries newest first, filtered by entity_type,
// entity_id or user_id
func (h *Handler) ListAuditLogs(c echo.Context) error {
	page, limit := pagination(c)

	f := audit.Filter{EntityType: c.QueryParam("entity_type"), Page: page, Limit: limit}
	var err error
	if f.EntityID, err = queryUint(c, "entity_id"); err != nil {
		return err
	}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return err
	}

	logs, total, err := h.Audit.List(c.Request().Context(), f)
	if err != nil {
		return dbError(c, err, "audit log")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"audit_logs": logs,
		"pagination": pageInfo(page, limit, total),
	})
}
