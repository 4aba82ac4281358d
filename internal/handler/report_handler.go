package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// OccupancyReport returns the current occupancy of every property
func (h *Handler) OccupancyReport(c echo.Context) error {
	rows, err := h.Reports.Occupancy(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"properties": rows})
}

// OpportunityLossReport returns rent lost to vacancy between from and to.
// The period defaults to the current month up to today.
func (h *Handler) OpportunityLossReport(c echo.Context) error {
	from, err := parseDate("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := parseDate("to", c.QueryParam("to"))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	rows, err := h.Reports.OpportunityLoss(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"properties": rows,
	})
}
