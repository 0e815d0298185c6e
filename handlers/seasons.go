package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StartSeason begins a new season for the authenticated user in their
// team's current tier, superseding any prior active season.
func (h *Handler) StartSeason(c echo.Context) error {
	prog, err := h.controller.Start(c.Request().Context(), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, prog)
}

// CurrentSeason reports the authenticated user's active season progress.
func (h *Handler) CurrentSeason(c echo.Context) error {
	summary, err := h.controller.Progress(c.Request().Context(), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// SeasonTable returns the user's private ranked table: their own record
// alongside their view of the machine opponents.
func (h *Handler) SeasonTable(c echo.Context) error {
	rows, err := h.controller.Table(c.Request().Context(), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

// CompleteSeason runs the season-end transition: completion detection,
// promotion/relegation decision, tier move. Safe to call repeatedly once
// complete – it reports the same outcome without repeating the move.
func (h *Handler) CompleteSeason(c echo.Context) error {
	outcome, err := h.controller.Complete(c.Request().Context(), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}
