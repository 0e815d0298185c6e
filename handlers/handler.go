package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/leagueapi/season"
	"github.com/padraicbc/leagueapi/standings"
	"github.com/padraicbc/leagueapi/store"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store      *store.Store
	controller *season.Controller
	aggregator *standings.Aggregator
}

// New creates a Handler over the store and engine components.
func New(st *store.Store, ctrl *season.Controller, agg *standings.Aggregator) *Handler {
	return &Handler{store: st, controller: ctrl, aggregator: agg}
}

// userID returns the authenticated user set by the JWT middleware.
func userID(c echo.Context) int {
	id, _ := c.Get("user_id").(int)
	return id
}

// httpError maps engine error kinds onto HTTP statuses so callers get a
// structured reason instead of a blanket 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, season.ErrNoActiveSeason),
		errors.Is(err, season.ErrUnknownFixture):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, season.ErrSeasonNotComplete),
		errors.Is(err, season.ErrTierFull),
		errors.Is(err, standings.ErrMatchNotFinished):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
