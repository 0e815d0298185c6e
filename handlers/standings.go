package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/leagueapi/models"
)

type standingData struct {
	Rank         int    `json:"rank"`
	TeamName     string `json:"teamName"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	GoalDiff     int    `json:"goalDifference"`
	Points       int    `json:"points"`
}

// Standings returns the tier-wide table for a competition season. These are
// the shared aggregates – a user's own view comes from /seasons/table.
func (h *Handler) Standings(c echo.Context) error {
	tier, err := strconv.Atoi(c.QueryParam("tier"))
	if err != nil || tier < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing or invalid tier param")
	}

	ctx := c.Request().Context()
	comp, err := h.store.CompetitionByTier(ctx, tier)
	if err != nil {
		return httpError(err)
	}
	if comp == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no competition for tier")
	}

	seasonYear := comp.SeasonYear
	if sy := c.QueryParam("season"); sy != "" {
		if seasonYear, err = strconv.Atoi(sy); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid season param")
		}
	}

	rows, err := h.store.Standings(ctx, comp.CompetitionID, seasonYear)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toStandingData(rows))
}

// RecomputeStandings rebuilds a competition season's table from its finished
// fixtures. Normally the incremental path keeps the table current; this is
// the repair hatch the reconcile job also uses.
func (h *Handler) RecomputeStandings(c echo.Context) error {
	tier, err := strconv.Atoi(c.QueryParam("tier"))
	if err != nil || tier < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing or invalid tier param")
	}

	ctx := c.Request().Context()
	comp, err := h.store.CompetitionByTier(ctx, tier)
	if err != nil {
		return httpError(err)
	}
	if comp == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no competition for tier")
	}

	rows, err := h.aggregator.Recompute(ctx, comp.CompetitionID, comp.SeasonYear)
	if err != nil {
		return httpError(err)
	}

	// Recompute returns rows without the Team relation loaded.
	stored, err := h.store.Standings(ctx, comp.CompetitionID, comp.SeasonYear)
	if err == nil && len(stored) == len(rows) {
		rows = stored
	}
	return c.JSON(http.StatusOK, toStandingData(rows))
}

func toStandingData(rows []models.Standing) []standingData {
	out := make([]standingData, len(rows))
	for i, s := range rows {
		sd := standingData{
			Rank:         s.Rank,
			Played:       s.Played,
			Wins:         s.Wins,
			Draws:        s.Draws,
			Losses:       s.Losses,
			GoalsFor:     s.GoalsFor,
			GoalsAgainst: s.GoalsAgainst,
			GoalDiff:     s.GoalDiff(),
			Points:       s.Points,
		}
		if s.Team != nil {
			sd.TeamName = s.Team.Name
		}
		out[i] = sd
	}
	return out
}
