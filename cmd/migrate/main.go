// cmd/migrate/main.go
// Migrates data from the legacy MySQL game database into the local
// PostgreSQL database. The old scripts kept free-form status strings and
// no uniqueness guarantees, so values are normalized into the closed enums
// and the structural constraints are applied on the way in.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/gamedata?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"log"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/padraicbc/leagueapi/config"
	bundb "github.com/padraicbc/leagueapi/db"
	"github.com/padraicbc/leagueapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/gamedata?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	// Create tables (idempotent)
	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"teams", func() (int, error) { return migrateTeams(ctx, myDB, pgDB) }},
		{"competitions", func() (int, error) { return migrateCompetitions(ctx, myDB, pgDB) }},
		{"fixtures", func() (int, error) { return migrateFixtures(ctx, myDB, pgDB) }},
		{"standings", func() (int, error) { return migrateStandings(ctx, myDB, pgDB) }},
		{"progress", func() (int, error) { return migrateProgress(ctx, myDB, pgDB) }},
		{"machine_stats", func() (int, error) { return migrateMachineStats(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-15s  %d rows migrated", s.name, n)
	}

	log.Println("migration complete")
}

// --- helpers ---

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

func flush[T any](ctx context.Context, pgDB *bun.DB, batch *[]T, total *int) error {
	if err := bulkInsert(ctx, pgDB, *batch); err != nil {
		return err
	}
	*total += len(*batch)
	*batch = (*batch)[:0]
	return nil
}

// teamKind folds the legacy free-form kind column ("machine", "MACHINE",
// "bot", "cpu", anything else meant a player team) into the closed enum.
func teamKind(raw string) models.TeamKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "machine", "bot", "cpu", "ai":
		return models.TeamKindMachine
	default:
		return models.TeamKindUser
	}
}

// fixtureStatus folds the legacy status strings into the closed enum. The
// old scripts used "played", "done" and "finished" interchangeably.
func fixtureStatus(raw string) models.FixtureStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "finished", "played", "done":
		return models.FixtureFinished
	default:
		return models.FixtureScheduled
	}
}

func seasonStatus(raw string) models.SeasonStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "ended":
		return models.SeasonCompleted
	default:
		return models.SeasonActive
	}
}

// --- per-table migrations ---

func migrateTeams(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx, "SELECT id, name, kind, tier, user_id FROM teams")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []models.Team
	total := 0
	for rows.Next() {
		var (
			r      models.Team
			kind   string
			userID sql.NullInt64
		)
		if err := rows.Scan(&r.TeamID, &r.Name, &kind, &r.Tier, &userID); err != nil {
			return total, err
		}
		r.Kind = teamKind(kind)
		if userID.Valid {
			id := int(userID.Int64)
			r.OwnerID = &id
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := flush(ctx, pgDB, &batch, &total); err != nil {
				return total, err
			}
		}
	}
	if err := flush(ctx, pgDB, &batch, &total); err != nil {
		return total, err
	}
	return total, rows.Err()
}

func migrateCompetitions(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		"SELECT id, tier, capacity, season_year FROM competitions")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []models.Competition
	total := 0
	for rows.Next() {
		var r models.Competition
		if err := rows.Scan(&r.CompetitionID, &r.Tier, &r.Capacity, &r.SeasonYear); err != nil {
			return total, err
		}
		r.PublicID = uuid.NewString()
		batch = append(batch, r)
	}
	if err := flush(ctx, pgDB, &batch, &total); err != nil {
		return total, err
	}

	// current_teams is derived; recount it instead of trusting the legacy
	// counter, which was patched out of band and drifted.
	if _, err := pgDB.ExecContext(ctx,
		`UPDATE competitions SET current_teams = (SELECT count(*) FROM teams WHERE teams.tier = competitions.tier)`); err != nil {
		return total, err
	}
	return total, rows.Err()
}

func migrateFixtures(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT id, competition_id, season_year, user_id, round,
		       home_team_id, away_team_id, scheduled_at, status,
		       home_goals, away_goals
		FROM matches`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []models.Fixture
	total := 0
	for rows.Next() {
		var (
			r      models.Fixture
			status string
			hg, ag sql.NullInt64
		)
		if err := rows.Scan(&r.FixtureID, &r.CompetitionID, &r.SeasonYear, &r.UserID,
			&r.Round, &r.HomeTeamID, &r.AwayTeamID, &r.ScheduledAt, &status, &hg, &ag); err != nil {
			return total, err
		}
		r.PublicID = uuid.NewString()
		r.Status = fixtureStatus(status)
		if r.Status == models.FixtureFinished {
			if hg.Valid && ag.Valid {
				h, a := int(hg.Int64), int(ag.Int64)
				r.HomeGoals, r.AwayGoals = &h, &a
			} else {
				// A "played" match with no score cannot feed standings.
				r.Status = models.FixtureScheduled
			}
		}
		// The legacy scripts had no applied flag and standings were rebuilt
		// from scratch, so imported results count as already credited.
		r.ResultApplied = r.Status == models.FixtureFinished
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := flush(ctx, pgDB, &batch, &total); err != nil {
				return total, err
			}
		}
	}
	if err := flush(ctx, pgDB, &batch, &total); err != nil {
		return total, err
	}
	return total, rows.Err()
}

func migrateStandings(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT competition_id, season_year, team_id, played, wins, draws, losses,
		       goals_for, goals_against, points, position
		FROM classifications`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []models.Standing
	total := 0
	for rows.Next() {
		var r models.Standing
		if err := rows.Scan(&r.CompetitionID, &r.SeasonYear, &r.TeamID, &r.Played,
			&r.Wins, &r.Draws, &r.Losses, &r.GoalsFor, &r.GoalsAgainst, &r.Points, &r.Rank); err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := flush(ctx, pgDB, &batch, &total); err != nil {
				return total, err
			}
		}
	}
	if err := flush(ctx, pgDB, &batch, &total); err != nil {
		return total, err
	}
	return total, rows.Err()
}

func migrateProgress(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT id, user_id, team_id, competition_id, tier, season_year,
		       played, wins, draws, losses, goals_for, goals_against, points,
		       current_rank, season_status
		FROM user_seasons
		ORDER BY user_id, season_year`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	// The legacy data could hold several "active" seasons per user; only the
	// newest survives as active, the rest are archived on import so the
	// partial unique index holds.
	latestActive := map[int]int{}
	var all []models.UserCompetitionProgress
	for rows.Next() {
		var (
			r      models.UserCompetitionProgress
			status string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.TeamID, &r.CompetitionID, &r.Tier,
			&r.SeasonYear, &r.Played, &r.Wins, &r.Draws, &r.Losses,
			&r.GoalsFor, &r.GoalsAgainst, &r.Points, &r.CurrentRank, &status); err != nil {
			return 0, err
		}
		r.SeasonStatus = seasonStatus(status)
		if r.SeasonStatus == models.SeasonActive {
			if prev, ok := latestActive[r.UserID]; ok {
				for i := range all {
					if all[i].ID == prev {
						all[i].SeasonStatus = models.SeasonCompleted
					}
				}
			}
			latestActive[r.UserID] = r.ID
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	total := 0
	for start := 0; start < len(all); start += batchSize {
		end := min(start+batchSize, len(all))
		batch := all[start:end]
		if err := bulkInsert(ctx, pgDB, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

func migrateMachineStats(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT user_id, tier, season_year, team_id, played, wins, draws, losses,
		       goals_for, goals_against, points
		FROM user_machine_stats`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []models.UserMachineTeamStat
	total := 0
	for rows.Next() {
		var r models.UserMachineTeamStat
		if err := rows.Scan(&r.UserID, &r.Tier, &r.SeasonYear, &r.TeamID, &r.Played,
			&r.Wins, &r.Draws, &r.Losses, &r.GoalsFor, &r.GoalsAgainst, &r.Points); err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := flush(ctx, pgDB, &batch, &total); err != nil {
				return total, err
			}
		}
	}
	if err := flush(ctx, pgDB, &batch, &total); err != nil {
		return total, err
	}
	return total, rows.Err()
}
