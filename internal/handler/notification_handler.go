package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ListNotifications lists the caller's notifications; unread=true limits
// the list to unread ones
func (h *Handler) ListNotifications(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c)
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))

	items, total, err := h.Inbox.List(c.Request().Context(), uid, unreadOnly, page, limit)
	if err != nil {
		return dbError(c, err, "notification")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notifications": items,
		"pagination":    pageInfo(page, limit, total),
	})
}

// UnreadCount reports how many of the caller's notifications are unread
func (h *Handler) UnreadCount(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	n, err := h.Inbox.UnreadCount(c.Request().Context(), uid)
	if err != nil {
		return dbError(c, err, "notification")
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkNotificationRead marks one of the caller's notifications read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Inbox.MarkRead(c.Request().Context(), uid, id); err != nil {
		return dbError(c, err, "notification")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead marks all of the caller's notifications read
func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	n, err := h.Inbox.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		return dbError(c, err, "notification")
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
