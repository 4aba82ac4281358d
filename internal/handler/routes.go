package handler

import (
	"github.com/suteetoe/leasedesk/internal/middleware"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/pkg/jwtutil"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the public and authenticated endpoints on e
func RegisterRoutes(e *echo.Echo, h *Handler, jwtUtil *jwtutil.JWTUtil) {
	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtUtil))

	leases := api.Group("/leases")
	leases.POST("", h.CreateLease)
	leases.GET("", h.ListLeases)
	leases.GET("/:id", h.GetLease)
	leases.PUT("/:id", h.UpdateLease)
	leases.POST("/:id/terminate", h.TerminateLease)
	leases.DELETE("/:id", h.DeleteLease)

	properties := api.Group("/properties")
	properties.POST("", h.CreateProperty)
	properties.GET("", h.ListProperties)
	properties.GET("/:id", h.GetProperty)
	properties.PUT("/:id", h.UpdateProperty)
	properties.DELETE("/:id", h.DeleteProperty)

	units := api.Group("/units")
	units.POST("", h.CreateUnit)
	units.GET("", h.ListUnits)
	units.GET("/:id", h.GetUnit)
	units.PUT("/:id", h.UpdateUnit)
	units.DELETE("/:id", h.DeleteUnit)

	tenants := api.Group("/tenants")
	tenants.POST("", h.CreateTenant)
	tenants.GET("", h.ListTenants)
	tenants.GET("/:id", h.GetTenant)
	tenants.PUT("/:id", h.UpdateTenant)
	tenants.DELETE("/:id", h.DeleteTenant)

	users := api.Group("/users", middleware.RequireRole(model.RoleAdmin))
	users.POST("", h.CreateUser)
	users.GET("", h.ListUsers)
	users.PUT("/:id", h.UpdateUser)

	notifications := api.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.GET("/unread-count", h.UnreadCount)
	notifications.POST("/read-all", h.MarkAllNotificationsRead)
	notifications.POST("/:id/read", h.MarkNotificationRead)

	api.GET("/audit-logs", h.ListAuditLogs, middleware.RequireRole(model.RoleAdmin, model.RoleManager))

	reports := api.Group("/reports")
	reports.GET("/occupancy", h.OccupancyReport)
	reports.GET("/opportunity-loss", h.OpportunityLossReport)
}
