package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order and applies the
// structural constraints the engine relies on:
//
//   - each ordered home/away pairing appears once per user season, so a
//     double round-robin stores each unordered pair exactly twice
//   - one standings row per (competition, season, team)
//   - one ledger row per (user, season, tier, machine team)
//   - at most one active progress row per user – the partial unique index
//     replaces the old "order by season_year desc limit 1" guesswork
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Team)(nil),
		(*models.Competition)(nil),
		(*models.Fixture)(nil),
		(*models.Standing)(nil),
		(*models.UserCompetitionProgress)(nil),
		(*models.UserMachineTeamStat)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fixtures_no_dupes') THEN ALTER TABLE fixtures ADD CONSTRAINT fixtures_no_dupes UNIQUE (user_id, competition_id, season_year, home_team_id, away_team_id); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'standings_no_dupes') THEN ALTER TABLE standings ADD CONSTRAINT standings_no_dupes UNIQUE (competition_id, season_year, team_id); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'machine_stats_no_dupes') THEN ALTER TABLE user_machine_team_stats ADD CONSTRAINT machine_stats_no_dupes UNIQUE (user_id, season_year, tier, team_id); END IF; END $$`,
		`CREATE UNIQUE INDEX IF NOT EXISTS one_active_season_per_user ON user_competition_progress (user_id) WHERE season_status = 'active'`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("constraint: %v", err)
		}
	}

	return nil
}
