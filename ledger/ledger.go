// Package ledger keeps each user's private copy of machine-opponent records.
//
// Machine teams are shared by every user playing a tier, but each user's
// season must look independent: user A beating Club X never shows up in user
// B's table. Every row is therefore keyed (user, season, tier, team) –
// aggregating on team alone is exactly the bug this package exists to avoid.
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/models"
	"github.com/padraicbc/leagueapi/standings"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	// ResetUserMachineStats wipes any prior rows for (user, tier, season) and
	// creates a fresh zero row per machine team, in one transaction.
	ResetUserMachineStats(ctx context.Context, userID, tier, seasonYear int, teamIDs []int) error
	// ApplyUserStatDeltas increments the user's rows for the given teams.
	ApplyUserStatDeltas(ctx context.Context, userID, tier, seasonYear int, deltas map[int]models.MatchOutcome) error
	// UserMachineStats returns the user's rows for one tier season.
	UserMachineStats(ctx context.Context, userID, tier, seasonYear int) ([]models.UserMachineTeamStat, error)
	// TeamsByID resolves team kinds so user-owned sides are skipped.
	TeamsByID(ctx context.Context, ids []int) (map[int]models.Team, error)
}

// Ledger maintains per-user machine-opponent aggregates.
type Ledger struct {
	store Store
	rules config.Rules
	log   *zap.Logger
}

// New creates a Ledger with the given store and rule set.
func New(store Store, rules config.Rules, log *zap.Logger) *Ledger {
	return &Ledger{store: store, rules: rules, log: log}
}

// InitializeForUser creates an all-zero stat set for the machine teams the
// user will face. It always wipes first: re-entering a tier after promotion
// or relegation must never inherit rows from an earlier stay. The original
// scripts skipped this on tier changes and left garbage tables behind, so
// the wipe is a hard requirement here, not cleanup.
func (l *Ledger) InitializeForUser(ctx context.Context, userID, tier, seasonYear int, machineTeamIDs []int) error {
	if err := l.store.ResetUserMachineStats(ctx, userID, tier, seasonYear, machineTeamIDs); err != nil {
		return fmt.Errorf("reset machine stats for user %d tier %d: %w", userID, tier, err)
	}
	l.log.Info("machine stat ledger initialized",
		zap.Int("userID", userID),
		zap.Int("tier", tier),
		zap.Int("seasonYear", seasonYear),
		zap.Int("teams", len(machineTeamIDs)))
	return nil
}

// ApplyResultForUser credits one finished fixture to the owning user's
// machine rows only. Machine-vs-machine fixtures update both sides; a fixture
// involving the user's own team updates just the machine opponent. Tier and
// season year both come from the caller's season record so the row identity
// cannot mix seasons. The caller gates this behind the standings claim, so a
// fixture feeds the ledger at most once.
func (l *Ledger) ApplyResultForUser(ctx context.Context, userID, tier, seasonYear int, f *models.Fixture, homeGoals, awayGoals int) error {
	if !f.Finished() {
		return fmt.Errorf("%w: fixture %d", standings.ErrMatchNotFinished, f.FixtureID)
	}

	teams, err := l.store.TeamsByID(ctx, []int{f.HomeTeamID, f.AwayTeamID})
	if err != nil {
		return fmt.Errorf("load fixture teams: %w", err)
	}

	home, away := standings.Outcomes(homeGoals, awayGoals, l.rules)
	deltas := make(map[int]models.MatchOutcome, 2)
	if t, ok := teams[f.HomeTeamID]; ok && t.IsMachine() {
		deltas[f.HomeTeamID] = home
	}
	if t, ok := teams[f.AwayTeamID]; ok && t.IsMachine() {
		deltas[f.AwayTeamID] = away
	}
	if len(deltas) == 0 {
		return nil
	}

	if err := l.store.ApplyUserStatDeltas(ctx, userID, tier, seasonYear, deltas); err != nil {
		return fmt.Errorf("apply ledger deltas for fixture %d: %w", f.FixtureID, err)
	}
	return nil
}

// StatsForUser returns the user's machine-opponent rows for one tier season.
func (l *Ledger) StatsForUser(ctx context.Context, userID, tier, seasonYear int) ([]models.UserMachineTeamStat, error) {
	return l.store.UserMachineStats(ctx, userID, tier, seasonYear)
}
