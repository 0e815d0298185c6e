// Package standings maintains ranked league tables from match results.
//
// Two paths exist and must agree: Recompute rebuilds a competition's table
// from its full finished-fixture set, ApplyResult credits a single result
// incrementally. The incremental path claims each fixture exactly once, so
// replaying a result is a no-op rather than a double count.
package standings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/models"
)

// ErrMatchNotFinished is returned when a result is applied for a fixture
// that is still scheduled.
var ErrMatchNotFinished = errors.New("standings: fixture not finished")

// Store is the persistence surface the aggregator needs.
type Store interface {
	// FinishedFixtures returns all finished fixtures for one competition season.
	FinishedFixtures(ctx context.Context, competitionID, seasonYear int) ([]models.Fixture, error)
	// TeamsByID resolves teams for display names and kinds.
	TeamsByID(ctx context.Context, ids []int) (map[int]models.Team, error)
	// ReplaceStandings swaps the stored table for a competition season in one
	// transaction; on failure the prior standings remain authoritative.
	ReplaceStandings(ctx context.Context, competitionID, seasonYear int, rows []models.Standing) error
	// ApplyStandingResult atomically claims the fixture's result and applies
	// the per-team deltas, creating zero rows for unseen teams. It returns
	// false when the result was already applied.
	ApplyStandingResult(ctx context.Context, fixtureID int, deltas map[int]models.MatchOutcome) (bool, error)
}

// Aggregator computes and persists standings.
type Aggregator struct {
	store Store
	rules config.Rules
	log   *zap.Logger
}

// New creates an Aggregator with the given store and rule set.
func New(store Store, rules config.Rules, log *zap.Logger) *Aggregator {
	return &Aggregator{store: store, rules: rules, log: log}
}

// Outcomes returns the home and away deltas for one finished scoreline.
func Outcomes(homeGoals, awayGoals int, rules config.Rules) (home, away models.MatchOutcome) {
	home = models.OutcomeFor(homeGoals, awayGoals, rules.PointsWin, rules.PointsDraw)
	away = models.OutcomeFor(awayGoals, homeGoals, rules.PointsWin, rules.PointsDraw)
	return home, away
}

// RankRows orders rows by points, then goal difference, then goals scored,
// then team name, and assigns 1-based ranks. The name tie-break keeps the
// order deterministic however results arrive.
func RankRows(rows []models.TableRow) []models.TableRow {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Recompute rebuilds the table for one competition season from its finished
// fixtures and persists it. Teams appearing only in fixtures (mid-season
// entries) get rows created from zero rather than erroring.
func (a *Aggregator) Recompute(ctx context.Context, competitionID, seasonYear int) ([]models.Standing, error) {
	fixtures, err := a.store.FinishedFixtures(ctx, competitionID, seasonYear)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}

	seen := make(map[int]struct{})
	var ids []int
	for _, f := range fixtures {
		for _, id := range []int{f.HomeTeamID, f.AwayTeamID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	teams, err := a.store.TeamsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}

	rows := make(map[int]*models.TableRow, len(ids))
	for _, id := range ids {
		t := teams[id]
		rows[id] = &models.TableRow{TeamID: id, TeamName: t.Name, Kind: t.Kind}
	}

	for _, f := range fixtures {
		if f.HomeGoals == nil || f.AwayGoals == nil {
			continue
		}
		home, away := Outcomes(*f.HomeGoals, *f.AwayGoals, a.rules)
		rows[f.HomeTeamID].ApplyOutcome(home)
		rows[f.AwayTeamID].ApplyOutcome(away)
	}

	flat := make([]models.TableRow, 0, len(rows))
	for _, r := range rows {
		flat = append(flat, *r)
	}
	ranked := RankRows(flat)

	standings := make([]models.Standing, len(ranked))
	for i, r := range ranked {
		standings[i] = models.Standing{
			CompetitionID: competitionID,
			SeasonYear:    seasonYear,
			TeamID:        r.TeamID,
			Played:        r.Played,
			Wins:          r.Wins,
			Draws:         r.Draws,
			Losses:        r.Losses,
			GoalsFor:      r.GoalsFor,
			GoalsAgainst:  r.GoalsAgainst,
			Points:        r.Points,
			Rank:          r.Rank,
		}
	}

	if err := a.store.ReplaceStandings(ctx, competitionID, seasonYear, standings); err != nil {
		return nil, fmt.Errorf("replace standings: %w", err)
	}
	return standings, nil
}

// ApplyResult credits a single finished fixture to the two affected teams.
// It returns true when the result was applied now, false when it had been
// applied before (a clean no-op).
func (a *Aggregator) ApplyResult(ctx context.Context, f *models.Fixture, homeGoals, awayGoals int) (bool, error) {
	if !f.Finished() {
		return false, fmt.Errorf("%w: fixture %d", ErrMatchNotFinished, f.FixtureID)
	}

	home, away := Outcomes(homeGoals, awayGoals, a.rules)
	applied, err := a.store.ApplyStandingResult(ctx, f.FixtureID, map[int]models.MatchOutcome{
		f.HomeTeamID: home,
		f.AwayTeamID: away,
	})
	if err != nil {
		return false, fmt.Errorf("apply result for fixture %d: %w", f.FixtureID, err)
	}
	if !applied {
		a.log.Debug("result already applied", zap.Int("fixtureID", f.FixtureID))
	}
	return applied, nil
}
