// Package season orchestrates the season lifecycle: starting a season,
// recording results, detecting completion and driving the tier-based
// promotion/relegation state machine.
package season

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/ledger"
	"github.com/padraicbc/leagueapi/models"
	"github.com/padraicbc/leagueapi/schedule"
	"github.com/padraicbc/leagueapi/standings"
)

var (
	// ErrSeasonNotComplete is returned when a season-end transition is
	// requested while fixtures are still outstanding.
	ErrSeasonNotComplete = errors.New("season: fixtures still outstanding")
	// ErrNoActiveSeason is returned when an operation needs an active season
	// and the user has none.
	ErrNoActiveSeason = errors.New("season: no active season")
	// ErrUnknownFixture is returned when a fixture reference does not resolve
	// within the caller's season.
	ErrUnknownFixture = errors.New("season: unknown fixture")
	// ErrTierFull is returned when a tier has no free slot for the user's team.
	ErrTierFull = errors.New("season: tier is at capacity")
	// ErrInvalidTierBoundary marks a promotion from the top tier or a
	// relegation from the bottom one. Boundary tiers are a normal condition:
	// Decide resolves this to a stay, it never reaches callers as a failure.
	ErrInvalidTierBoundary = errors.New("season: no tier beyond boundary")
)

// Move is the outcome of a season-end evaluation.
type Move string

const (
	MovePromoted  Move = "promoted"
	MoveRelegated Move = "relegated"
	MoveStayed    Move = "stayed"
)

// Outcome reports a completed season's final decision.
type Outcome struct {
	UserID     int  `json:"userID"`
	SeasonYear int  `json:"seasonYear"`
	FinalRank  int  `json:"finalRank"`
	Move       Move `json:"move"`
	FromTier   int  `json:"fromTier"`
	NextTier   int  `json:"nextTier"`
}

// Summary is a mid-season progress snapshot.
type Summary struct {
	Progress         *models.UserCompetitionProgress `json:"progress"`
	TotalFixtures    int                             `json:"totalFixtures"`
	FinishedFixtures int                             `json:"finishedFixtures"`
}

// Store is the persistence surface the controller needs.
type Store interface {
	// EnsureCompetition returns the competition row for a tier, creating it
	// or advancing its season year as needed.
	EnsureCompetition(ctx context.Context, tier, capacity, seasonYear int) (*models.Competition, error)
	// RecountEnrollment recomputes current_teams from the teams table. The
	// counter is derived state and is only ever written through this.
	RecountEnrollment(ctx context.Context, tier int) error
	TeamsInTier(ctx context.Context, tier int) ([]models.Team, error)
	UserTeam(ctx context.Context, userID int) (*models.Team, error)
	MoveTeamToTier(ctx context.Context, teamID, tier int) error
	// SaveFixtures bulk-inserts a calendar in one transaction; conflicts on
	// the pairing constraint are ignored so a retried start is idempotent.
	SaveFixtures(ctx context.Context, fixtures []models.Fixture) error
	UserFixtures(ctx context.Context, userID, competitionID, seasonYear int) ([]models.Fixture, error)
	FixtureByPublicID(ctx context.Context, publicID string) (*models.Fixture, error)
	MarkFixtureFinished(ctx context.Context, fixtureID, homeGoals, awayGoals int) error
	// ActiveProgress returns the user's active season record, or nil.
	ActiveProgress(ctx context.Context, userID int) (*models.UserCompetitionProgress, error)
	// LatestProgress returns the user's most recent season record, or nil.
	LatestProgress(ctx context.Context, userID int) (*models.UserCompetitionProgress, error)
	InsertProgress(ctx context.Context, p *models.UserCompetitionProgress) error
	ApplyProgressDelta(ctx context.Context, progressID int, o models.MatchOutcome) error
	SetProgressRank(ctx context.Context, progressID, rank int) error
	// CompleteProgress flips the row to completed only if it is still active,
	// reporting whether this call made the transition. Concurrent completion
	// checks race on this claim so the tier move runs at most once.
	CompleteProgress(ctx context.Context, progressID, finalRank int) (bool, error)
}

// Controller drives the season state machine.
type Controller struct {
	store Store
	agg   *standings.Aggregator
	led   *ledger.Ledger
	rules config.Rules
	log   *zap.Logger
	now   func() time.Time
}

// New creates a Controller. The aggregator and ledger receive every applied
// result; rules configure zones, points and the tier range.
func New(store Store, agg *standings.Aggregator, led *ledger.Ledger, rules config.Rules, log *zap.Logger) *Controller {
	return &Controller{store: store, agg: agg, led: led, rules: rules, log: log, now: time.Now}
}

// Start begins a new season for the user in their team's current tier. Any
// prior active season is archived first, so at most one active record ever
// exists. The full calendar is generated against the tier cohort and a fresh
// all-zero machine stat ledger is created.
func (c *Controller) Start(ctx context.Context, userID int) (*models.UserCompetitionProgress, error) {
	team, err := c.store.UserTeam(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user team: %w", err)
	}

	seasonYear := c.now().Year()
	if prior, err := c.store.ActiveProgress(ctx, userID); err != nil {
		return nil, fmt.Errorf("load active progress: %w", err)
	} else if prior != nil {
		// Supersede rather than leave two actives behind.
		if _, err := c.store.CompleteProgress(ctx, prior.ID, prior.CurrentRank); err != nil {
			return nil, fmt.Errorf("archive prior season: %w", err)
		}
		c.log.Info("archived prior active season",
			zap.Int("userID", userID), zap.Int("seasonYear", prior.SeasonYear))
		if prior.SeasonYear >= seasonYear {
			seasonYear = prior.SeasonYear + 1
		}
	} else if latest, err := c.store.LatestProgress(ctx, userID); err != nil {
		return nil, fmt.Errorf("load latest progress: %w", err)
	} else if latest != nil && latest.SeasonYear >= seasonYear {
		seasonYear = latest.SeasonYear + 1
	}

	comp, err := c.store.EnsureCompetition(ctx, team.Tier, c.rules.Capacity, seasonYear)
	if err != nil {
		return nil, fmt.Errorf("ensure competition for tier %d: %w", team.Tier, err)
	}

	tierTeams, err := c.store.TeamsInTier(ctx, team.Tier)
	if err != nil {
		return nil, fmt.Errorf("load tier %d teams: %w", team.Tier, err)
	}

	// A user's season runs against the machine pool only – other users'
	// teams live in their own parallel seasons.
	ids := []int{team.TeamID}
	machineIDs := make([]int, 0, len(tierTeams))
	for _, t := range tierTeams {
		if t.IsMachine() {
			ids = append(ids, t.TeamID)
			machineIDs = append(machineIDs, t.TeamID)
		}
	}
	if len(ids) > comp.Capacity {
		return nil, fmt.Errorf("%w: tier %d has %d teams for %d slots",
			ErrTierFull, team.Tier, len(ids), comp.Capacity)
	}

	fixtures, err := schedule.Generate(ids, schedule.Options{
		CompetitionID: comp.CompetitionID,
		SeasonYear:    seasonYear,
		UserID:        userID,
		Start:         c.now(),
		RoundInterval: time.Duration(c.rules.RoundIntervalDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("generate calendar: %w", err)
	}
	if err := c.store.SaveFixtures(ctx, fixtures); err != nil {
		return nil, fmt.Errorf("save calendar: %w", err)
	}

	if err := c.led.InitializeForUser(ctx, userID, team.Tier, seasonYear, machineIDs); err != nil {
		return nil, err
	}

	prog := &models.UserCompetitionProgress{
		UserID:        userID,
		TeamID:        team.TeamID,
		CompetitionID: comp.CompetitionID,
		Tier:          team.Tier,
		SeasonYear:    seasonYear,
		SeasonStatus:  models.SeasonActive,
	}
	if err := c.store.InsertProgress(ctx, prog); err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	c.log.Info("season started",
		zap.Int("userID", userID),
		zap.Int("tier", team.Tier),
		zap.Int("seasonYear", seasonYear),
		zap.Int("fixtures", len(fixtures)))
	return prog, nil
}

// Progress reports how far the user's active season has advanced.
func (c *Controller) Progress(ctx context.Context, userID int) (*Summary, error) {
	prog, err := c.activeProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	fixtures, err := c.store.UserFixtures(ctx, userID, prog.CompetitionID, prog.SeasonYear)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	finished := 0
	for _, f := range fixtures {
		if f.Finished() {
			finished++
		}
	}
	return &Summary{Progress: prog, TotalFixtures: len(fixtures), FinishedFixtures: finished}, nil
}

// RecordResult records a scoreline for one of the user's fixtures and
// propagates it to the tier standings, the user's machine stat ledger and
// their own progress record. Replays are clean no-ops: the standings claim
// gates every downstream write.
func (c *Controller) RecordResult(ctx context.Context, userID int, fixturePublicID string, homeGoals, awayGoals int) error {
	f, err := c.store.FixtureByPublicID(ctx, fixturePublicID)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}
	if f == nil || f.UserID != userID {
		return fmt.Errorf("%w: %s", ErrUnknownFixture, fixturePublicID)
	}

	prog, err := c.activeProgress(ctx, userID)
	if err != nil {
		return err
	}
	// A superseded season can leave scheduled fixtures behind. They are
	// history, not part of the active season, and must never feed the active
	// progress row or ledger.
	if f.CompetitionID != prog.CompetitionID || f.SeasonYear != prog.SeasonYear {
		return fmt.Errorf("%w: %s is not part of the active season", ErrUnknownFixture, fixturePublicID)
	}

	if f.Finished() {
		// The first recorded result is authoritative.
		homeGoals, awayGoals = *f.HomeGoals, *f.AwayGoals
	} else {
		if err := c.store.MarkFixtureFinished(ctx, f.FixtureID, homeGoals, awayGoals); err != nil {
			return fmt.Errorf("mark fixture finished: %w", err)
		}
		f.Status = models.FixtureFinished
		f.HomeGoals, f.AwayGoals = &homeGoals, &awayGoals
	}

	applied, err := c.agg.ApplyResult(ctx, f, homeGoals, awayGoals)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if err := c.led.ApplyResultForUser(ctx, userID, prog.Tier, prog.SeasonYear, f, homeGoals, awayGoals); err != nil {
		return err
	}

	if f.HomeTeamID == prog.TeamID || f.AwayTeamID == prog.TeamID {
		home, away := standings.Outcomes(homeGoals, awayGoals, c.rules)
		out := home
		if f.AwayTeamID == prog.TeamID {
			out = away
		}
		if err := c.store.ApplyProgressDelta(ctx, prog.ID, out); err != nil {
			return fmt.Errorf("apply progress delta: %w", err)
		}
	}

	rank, _, err := c.rankOf(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.store.SetProgressRank(ctx, prog.ID, rank); err != nil {
		return fmt.Errorf("set progress rank: %w", err)
	}
	return nil
}

// Table returns the user's private ranked table: their own record merged
// with their machine-opponent rows.
func (c *Controller) Table(ctx context.Context, userID int) ([]models.TableRow, error) {
	prog, err := c.activeProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.tableFor(ctx, prog)
}

// Complete runs the season-end transition. It fails with ErrSeasonNotComplete
// while fixtures are outstanding; on a fully played season it evaluates the
// final rank against the promotion and relegation zones and moves the user's
// team at most once. Re-invoking after completion reports the same outcome
// without repeating the move.
func (c *Controller) Complete(ctx context.Context, userID int) (*Outcome, error) {
	prog, err := c.store.ActiveProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active progress: %w", err)
	}
	if prog == nil {
		// Already completed: report the recorded outcome. The decision is a
		// pure function of rank and tier, so recomputing it cannot drift.
		latest, err := c.store.LatestProgress(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load latest progress: %w", err)
		}
		if latest == nil {
			return nil, ErrNoActiveSeason
		}
		size, err := c.tableSize(ctx, latest)
		if err != nil {
			return nil, err
		}
		move, next := c.Decide(latest.Tier, latest.CurrentRank, size)
		return c.outcome(latest, latest.CurrentRank, move, next), nil
	}

	fixtures, err := c.store.UserFixtures(ctx, userID, prog.CompetitionID, prog.SeasonYear)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	finished := 0
	for _, f := range fixtures {
		if f.Finished() {
			finished++
		}
	}
	if len(fixtures) == 0 || finished < len(fixtures) {
		return nil, fmt.Errorf("%w: %d of %d fixtures finished",
			ErrSeasonNotComplete, finished, len(fixtures))
	}

	rank, size, err := c.rankOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	move, nextTier := c.Decide(prog.Tier, rank, size)

	claimed, err := c.store.CompleteProgress(ctx, prog.ID, rank)
	if err != nil {
		return nil, fmt.Errorf("complete progress: %w", err)
	}
	if claimed && nextTier != prog.Tier {
		if err := c.store.MoveTeamToTier(ctx, prog.TeamID, nextTier); err != nil {
			return nil, fmt.Errorf("move team to tier %d: %w", nextTier, err)
		}
		for _, tier := range []int{prog.Tier, nextTier} {
			if err := c.store.RecountEnrollment(ctx, tier); err != nil {
				return nil, fmt.Errorf("recount tier %d enrollment: %w", tier, err)
			}
		}
	}

	c.log.Info("season completed",
		zap.Int("userID", userID),
		zap.Int("seasonYear", prog.SeasonYear),
		zap.Int("finalRank", rank),
		zap.String("move", string(move)),
		zap.Int("nextTier", nextTier),
		zap.Bool("claimed", claimed))
	return c.outcome(prog, rank, move, nextTier), nil
}

// Decide evaluates a final rank against the configured zones. Promotions off
// the top tier and relegations off the bottom one resolve to a stay – the
// boundary is a normal condition, not a failure.
func (c *Controller) Decide(tier, rank, tableSize int) (Move, int) {
	switch {
	case rank <= c.rules.PromotionZone:
		if next, err := c.shiftTier(tier, -1); err == nil {
			return MovePromoted, next
		}
	case rank > tableSize-c.rules.RelegationZone:
		if next, err := c.shiftTier(tier, 1); err == nil {
			return MoveRelegated, next
		}
	}
	return MoveStayed, tier
}

func (c *Controller) shiftTier(tier, delta int) (int, error) {
	next := tier + delta
	if next < c.rules.TopTier || next > c.rules.BottomTier {
		return tier, fmt.Errorf("%w: tier %d%+d", ErrInvalidTierBoundary, tier, delta)
	}
	return next, nil
}

func (c *Controller) outcome(p *models.UserCompetitionProgress, rank int, move Move, next int) *Outcome {
	return &Outcome{
		UserID:     p.UserID,
		SeasonYear: p.SeasonYear,
		FinalRank:  rank,
		Move:       move,
		FromTier:   p.Tier,
		NextTier:   next,
	}
}

func (c *Controller) activeProgress(ctx context.Context, userID int) (*models.UserCompetitionProgress, error) {
	prog, err := c.store.ActiveProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active progress: %w", err)
	}
	if prog == nil {
		return nil, ErrNoActiveSeason
	}
	return prog, nil
}

// tableFor builds the user's private table from their progress row and
// machine stat ledger.
func (c *Controller) tableFor(ctx context.Context, prog *models.UserCompetitionProgress) ([]models.TableRow, error) {
	stats, err := c.led.StatsForUser(ctx, prog.UserID, prog.Tier, prog.SeasonYear)
	if err != nil {
		return nil, fmt.Errorf("load machine stats: %w", err)
	}
	team, err := c.store.UserTeam(ctx, prog.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user team: %w", err)
	}

	rows := make([]models.TableRow, 0, len(stats)+1)
	rows = append(rows, models.TableRow{
		TeamID:       prog.TeamID,
		TeamName:     team.Name,
		Kind:         models.TeamKindUser,
		Played:       prog.Played,
		Wins:         prog.Wins,
		Draws:        prog.Draws,
		Losses:       prog.Losses,
		GoalsFor:     prog.GoalsFor,
		GoalsAgainst: prog.GoalsAgainst,
		GoalDiff:     prog.GoalDiff(),
		Points:       prog.Points,
	})
	for _, s := range stats {
		name := ""
		if s.Team != nil {
			name = s.Team.Name
		}
		rows = append(rows, models.TableRow{
			TeamID:       s.TeamID,
			TeamName:     name,
			Kind:         models.TeamKindMachine,
			Played:       s.Played,
			Wins:         s.Wins,
			Draws:        s.Draws,
			Losses:       s.Losses,
			GoalsFor:     s.GoalsFor,
			GoalsAgainst: s.GoalsAgainst,
			GoalDiff:     s.GoalDiff(),
			Points:       s.Points,
		})
	}
	return standings.RankRows(rows), nil
}

func (c *Controller) rankOf(ctx context.Context, userID int) (rank, tableSize int, err error) {
	prog, err := c.activeProgress(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	rows, err := c.tableFor(ctx, prog)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		if r.TeamID == prog.TeamID {
			return r.Rank, len(rows), nil
		}
	}
	return len(rows), len(rows), nil
}

func (c *Controller) tableSize(ctx context.Context, prog *models.UserCompetitionProgress) (int, error) {
	stats, err := c.led.StatsForUser(ctx, prog.UserID, prog.Tier, prog.SeasonYear)
	if err != nil {
		return 0, fmt.Errorf("load machine stats: %w", err)
	}
	return len(stats) + 1, nil
}
