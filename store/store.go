// Package store is the bun/PostgreSQL implementation of the persistence
// contracts the engine packages declare. Multi-row invariants (claiming a
// result, swapping a table, wiping a ledger) each run in one transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/padraicbc/leagueapi/ledger"
	"github.com/padraicbc/leagueapi/models"
	"github.com/padraicbc/leagueapi/season"
	"github.com/padraicbc/leagueapi/standings"
)

// Store wraps a bun DB connection.
type Store struct {
	db *bun.DB
}

// New creates a Store on the given connection.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

var (
	_ standings.Store = (*Store)(nil)
	_ ledger.Store    = (*Store)(nil)
	_ season.Store    = (*Store)(nil)
)

// --- fixtures ---

// SaveFixtures bulk-inserts a generated calendar. Conflicts on the pairing
// constraint are skipped so a retried season start cannot duplicate legs.
func (s *Store) SaveFixtures(ctx context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&fixtures).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// UserFixtures returns one user's calendar for a competition season in
// round order.
func (s *Store) UserFixtures(ctx context.Context, userID, competitionID, seasonYear int) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	err := s.db.NewSelect().Model(&fixtures).
		Relation("Home").
		Relation("Away").
		Where("f.user_id = ?", userID).
		Where("f.competition_id = ?", competitionID).
		Where("f.season_year = ?", seasonYear).
		OrderExpr("f.round ASC, f.fixture_id ASC").
		Scan(ctx)
	return fixtures, err
}

// FixtureByPublicID resolves an external fixture reference, returning nil
// when nothing matches.
func (s *Store) FixtureByPublicID(ctx context.Context, publicID string) (*models.Fixture, error) {
	f := new(models.Fixture)
	err := s.db.NewSelect().Model(f).Where("f.public_id = ?", publicID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// MarkFixtureFinished records a scoreline. The first result wins: a fixture
// already finished is left untouched.
func (s *Store) MarkFixtureFinished(ctx context.Context, fixtureID, homeGoals, awayGoals int) error {
	_, err := s.db.NewUpdate().Model((*models.Fixture)(nil)).
		Set("status = ?", models.FixtureFinished).
		Set("home_goals = ?", homeGoals).
		Set("away_goals = ?", awayGoals).
		Where("fixture_id = ?", fixtureID).
		Where("status = ?", models.FixtureScheduled).
		Exec(ctx)
	return err
}

// FinishedFixtures returns all finished fixtures for one competition season.
func (s *Store) FinishedFixtures(ctx context.Context, competitionID, seasonYear int) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	err := s.db.NewSelect().Model(&fixtures).
		Where("f.competition_id = ?", competitionID).
		Where("f.season_year = ?", seasonYear).
		Where("f.status = ?", models.FixtureFinished).
		OrderExpr("f.fixture_id ASC").
		Scan(ctx)
	return fixtures, err
}

// --- teams and competitions ---

// TeamsByID resolves a set of teams into a lookup map.
func (s *Store) TeamsByID(ctx context.Context, ids []int) (map[int]models.Team, error) {
	out := make(map[int]models.Team, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var teams []models.Team
	err := s.db.NewSelect().Model(&teams).
		Where("t.team_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		out[t.TeamID] = t
	}
	return out, nil
}

// TeamsInTier returns the tier cohort.
func (s *Store) TeamsInTier(ctx context.Context, tier int) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.NewSelect().Model(&teams).
		Where("t.tier = ?", tier).
		OrderExpr("t.team_id ASC").
		Scan(ctx)
	return teams, err
}

// UserTeam returns the team owned by the given user.
func (s *Store) UserTeam(ctx context.Context, userID int) (*models.Team, error) {
	t := new(models.Team)
	err := s.db.NewSelect().Model(t).Where("t.owner_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d has no team", userID)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MoveTeamToTier reassigns a team's tier.
func (s *Store) MoveTeamToTier(ctx context.Context, teamID, tier int) error {
	_, err := s.db.NewUpdate().Model((*models.Team)(nil)).
		Set("tier = ?", tier).
		Where("team_id = ?", teamID).
		Exec(ctx)
	return err
}

// EnsureCompetition returns the competition row for a tier, creating it on
// first use and advancing season_year when a newer season begins.
func (s *Store) EnsureCompetition(ctx context.Context, tier, capacity, seasonYear int) (*models.Competition, error) {
	comp := new(models.Competition)
	err := s.db.NewSelect().Model(comp).Where("cp.tier = ?", tier).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		comp = &models.Competition{
			PublicID:   uuid.NewString(),
			Tier:       tier,
			Capacity:   capacity,
			SeasonYear: seasonYear,
		}
		if _, err := s.db.NewInsert().Model(comp).Exec(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case comp.SeasonYear < seasonYear:
		comp.SeasonYear = seasonYear
		if _, err := s.db.NewUpdate().Model(comp).
			Set("season_year = ?", seasonYear).
			Where("competition_id = ?", comp.CompetitionID).
			Exec(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.RecountEnrollment(ctx, tier); err != nil {
		return nil, err
	}
	return comp, nil
}

// CompetitionByTier returns the competition for a tier, or nil.
func (s *Store) CompetitionByTier(ctx context.Context, tier int) (*models.Competition, error) {
	comp := new(models.Competition)
	err := s.db.NewSelect().Model(comp).Where("cp.tier = ?", tier).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// Competitions returns every tier's competition row.
func (s *Store) Competitions(ctx context.Context) ([]models.Competition, error) {
	var comps []models.Competition
	err := s.db.NewSelect().Model(&comps).OrderExpr("cp.tier ASC").Scan(ctx)
	return comps, err
}

// RecountEnrollment recomputes current_teams from the teams table. The
// counter is never patched independently of enrollment changes.
func (s *Store) RecountEnrollment(ctx context.Context, tier int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE competitions SET current_teams = (SELECT count(*) FROM teams WHERE tier = ?) WHERE tier = ?`,
		tier, tier)
	return err
}

// --- standings ---

// ReplaceStandings swaps the stored table for a competition season. Delete
// and insert share a transaction, so a failed recompute leaves the prior
// table authoritative.
func (s *Store) ReplaceStandings(ctx context.Context, competitionID, seasonYear int, rows []models.Standing) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.Standing)(nil)).
			Where("competition_id = ?", competitionID).
			Where("season_year = ?", seasonYear).
			Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

// Standings returns the stored table for a competition season in rank order.
func (s *Store) Standings(ctx context.Context, competitionID, seasonYear int) ([]models.Standing, error) {
	var rows []models.Standing
	err := s.db.NewSelect().Model(&rows).
		Relation("Team").
		Where("s.competition_id = ?", competitionID).
		Where("s.season_year = ?", seasonYear).
		OrderExpr("s.rank ASC").
		Scan(ctx)
	return rows, err
}

// ApplyStandingResult claims a fixture's result and applies the per-team
// deltas in one transaction. The claim is a conditional update on
// result_applied: zero rows affected means the result was counted before and
// nothing else runs. Rows for unseen teams are created from zero, and ranks
// are refreshed within the same transaction.
func (s *Store) ApplyStandingResult(ctx context.Context, fixtureID int, deltas map[int]models.MatchOutcome) (bool, error) {
	applied := false
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.Fixture)(nil)).
			Set("result_applied = TRUE").
			Where("fixture_id = ?", fixtureID).
			Where("status = ?", models.FixtureFinished).
			Where("result_applied = FALSE").
			Exec(ctx)
		if err != nil {
			return err
		}
		claimed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if claimed == 0 {
			return nil
		}
		applied = true

		f := new(models.Fixture)
		if err := tx.NewSelect().Model(f).Where("f.fixture_id = ?", fixtureID).Scan(ctx); err != nil {
			return err
		}

		for teamID, o := range deltas {
			zero := models.Standing{
				CompetitionID: f.CompetitionID,
				SeasonYear:    f.SeasonYear,
				TeamID:        teamID,
			}
			if _, err := tx.NewInsert().Model(&zero).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return err
			}
			if _, err := tx.NewUpdate().Model((*models.Standing)(nil)).
				Set("played = played + 1").
				Set("wins = wins + ?", o.Wins).
				Set("draws = draws + ?", o.Draws).
				Set("losses = losses + ?", o.Losses).
				Set("goals_for = goals_for + ?", o.GoalsFor).
				Set("goals_against = goals_against + ?", o.GoalsAgainst).
				Set("points = points + ?", o.Points).
				Where("competition_id = ?", f.CompetitionID).
				Where("season_year = ?", f.SeasonYear).
				Where("team_id = ?", teamID).
				Exec(ctx); err != nil {
				return err
			}
		}

		return refreshRanks(ctx, tx, f.CompetitionID, f.SeasonYear)
	})
	return applied, err
}

// refreshRanks rewrites rank positions for one competition season using the
// standard comparator.
func refreshRanks(ctx context.Context, tx bun.Tx, competitionID, seasonYear int) error {
	var ids []int
	err := tx.NewSelect().Model((*models.Standing)(nil)).
		Column("s.id").
		Join("LEFT JOIN teams AS t ON t.team_id = s.team_id").
		Where("s.competition_id = ?", competitionID).
		Where("s.season_year = ?", seasonYear).
		OrderExpr("s.points DESC, (s.goals_for - s.goals_against) DESC, s.goals_for DESC, t.name ASC").
		Scan(ctx, &ids)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.NewUpdate().Model((*models.Standing)(nil)).
			Set("rank = ?", i+1).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// --- per-user machine stat ledger ---

// ResetUserMachineStats wipes and recreates the user's rows for a tier
// season in one transaction. Stale rows from an earlier stay in the tier
// must never survive re-entry.
func (s *Store) ResetUserMachineStats(ctx context.Context, userID, tier, seasonYear int, teamIDs []int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.UserMachineTeamStat)(nil)).
			Where("user_id = ?", userID).
			Where("tier = ?", tier).
			Where("season_year = ?", seasonYear).
			Exec(ctx); err != nil {
			return err
		}
		if len(teamIDs) == 0 {
			return nil
		}
		rows := make([]models.UserMachineTeamStat, len(teamIDs))
		for i, id := range teamIDs {
			rows[i] = models.UserMachineTeamStat{
				UserID:     userID,
				Tier:       tier,
				SeasonYear: seasonYear,
				TeamID:     id,
			}
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

// ApplyUserStatDeltas increments one user's rows for the given teams. A
// missing row (mid-season entry) is created by the upsert rather than
// erroring.
func (s *Store) ApplyUserStatDeltas(ctx context.Context, userID, tier, seasonYear int, deltas map[int]models.MatchOutcome) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for teamID, o := range deltas {
			row := models.UserMachineTeamStat{
				UserID:       userID,
				Tier:         tier,
				SeasonYear:   seasonYear,
				TeamID:       teamID,
				Played:       1,
				Wins:         o.Wins,
				Draws:        o.Draws,
				Losses:       o.Losses,
				GoalsFor:     o.GoalsFor,
				GoalsAgainst: o.GoalsAgainst,
				Points:       o.Points,
			}
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (user_id, season_year, tier, team_id) DO UPDATE").
				Set("played = ms.played + 1").
				Set("wins = ms.wins + EXCLUDED.wins").
				Set("draws = ms.draws + EXCLUDED.draws").
				Set("losses = ms.losses + EXCLUDED.losses").
				Set("goals_for = ms.goals_for + EXCLUDED.goals_for").
				Set("goals_against = ms.goals_against + EXCLUDED.goals_against").
				Set("points = ms.points + EXCLUDED.points").
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// UserMachineStats returns the user's rows for one tier season.
func (s *Store) UserMachineStats(ctx context.Context, userID, tier, seasonYear int) ([]models.UserMachineTeamStat, error) {
	var rows []models.UserMachineTeamStat
	err := s.db.NewSelect().Model(&rows).
		Relation("Team").
		Where("ms.user_id = ?", userID).
		Where("ms.tier = ?", tier).
		Where("ms.season_year = ?", seasonYear).
		OrderExpr("ms.team_id ASC").
		Scan(ctx)
	return rows, err
}

// --- user season progress ---

// ActiveProgress returns the user's active season record, or nil. The
// partial unique index guarantees there is at most one.
func (s *Store) ActiveProgress(ctx context.Context, userID int) (*models.UserCompetitionProgress, error) {
	p := new(models.UserCompetitionProgress)
	err := s.db.NewSelect().Model(p).
		Where("up.user_id = ?", userID).
		Where("up.season_status = ?", models.SeasonActive).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LatestProgress returns the user's most recent season record, or nil.
func (s *Store) LatestProgress(ctx context.Context, userID int) (*models.UserCompetitionProgress, error) {
	p := new(models.UserCompetitionProgress)
	err := s.db.NewSelect().Model(p).
		Where("up.user_id = ?", userID).
		OrderExpr("up.season_year DESC, up.id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// InsertProgress creates a new season record.
func (s *Store) InsertProgress(ctx context.Context, p *models.UserCompetitionProgress) error {
	_, err := s.db.NewInsert().Model(p).Exec(ctx)
	return err
}

// ApplyProgressDelta credits one finished match to the user's own record.
func (s *Store) ApplyProgressDelta(ctx context.Context, progressID int, o models.MatchOutcome) error {
	_, err := s.db.NewUpdate().Model((*models.UserCompetitionProgress)(nil)).
		Set("played = played + 1").
		Set("wins = wins + ?", o.Wins).
		Set("draws = draws + ?", o.Draws).
		Set("losses = losses + ?", o.Losses).
		Set("goals_for = goals_for + ?", o.GoalsFor).
		Set("goals_against = goals_against + ?", o.GoalsAgainst).
		Set("points = points + ?", o.Points).
		Where("id = ?", progressID).
		Exec(ctx)
	return err
}

// SetProgressRank stores the user's current position in their private table.
func (s *Store) SetProgressRank(ctx context.Context, progressID, rank int) error {
	_, err := s.db.NewUpdate().Model((*models.UserCompetitionProgress)(nil)).
		Set("current_rank = ?", rank).
		Where("id = ?", progressID).
		Exec(ctx)
	return err
}

// CompleteProgress flips a season to completed only if it is still active.
// The conditional update is the at-most-once guard for the promotion /
// relegation move.
func (s *Store) CompleteProgress(ctx context.Context, progressID, finalRank int) (bool, error) {
	res, err := s.db.NewUpdate().Model((*models.UserCompetitionProgress)(nil)).
		Set("season_status = ?", models.SeasonCompleted).
		Set("current_rank = ?", finalRank).
		Where("id = ?", progressID).
		Where("season_status = ?", models.SeasonActive).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
