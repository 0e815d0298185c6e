package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/leagueapi/models"
)

type fixtureData struct {
	PublicID  string               `json:"publicID"`
	Round     int                  `json:"round"`
	HomeTeam  string               `json:"homeTeam"`
	AwayTeam  string               `json:"awayTeam"`
	Scheduled string               `json:"scheduledAt"`
	Status    models.FixtureStatus `json:"status"`
	HomeGoals *int                 `json:"homeGoals,omitempty"`
	AwayGoals *int                 `json:"awayGoals,omitempty"`
}

type resultRequest struct {
	HomeGoals int `json:"homeGoals"`
	AwayGoals int `json:"awayGoals"`
}

// Fixtures returns the authenticated user's season calendar in round order.
func (h *Handler) Fixtures(c echo.Context) error {
	ctx := c.Request().Context()
	summary, err := h.controller.Progress(ctx, userID(c))
	if err != nil {
		return httpError(err)
	}

	prog := summary.Progress
	fixtures, err := h.store.UserFixtures(ctx, prog.UserID, prog.CompetitionID, prog.SeasonYear)
	if err != nil {
		return httpError(err)
	}

	out := make([]fixtureData, len(fixtures))
	for i, f := range fixtures {
		fd := fixtureData{
			PublicID:  f.PublicID,
			Round:     f.Round,
			Scheduled: f.ScheduledAt.Format("2006-01-02"),
			Status:    f.Status,
			HomeGoals: f.HomeGoals,
			AwayGoals: f.AwayGoals,
		}
		if f.Home != nil {
			fd.HomeTeam = f.Home.Name
		}
		if f.Away != nil {
			fd.AwayTeam = f.Away.Name
		}
		out[i] = fd
	}
	return c.JSON(http.StatusOK, out)
}

// RecordResult records a scoreline for one of the user's fixtures. Repeated
// submissions for the same fixture are no-ops: the first result stands and
// is never double-counted.
func (h *Handler) RecordResult(c echo.Context) error {
	var req resultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.HomeGoals < 0 || req.AwayGoals < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "goals must be non-negative")
	}

	err := h.controller.RecordResult(c.Request().Context(), userID(c), c.Param("publicID"), req.HomeGoals, req.AwayGoals)
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusAccepted)
}
