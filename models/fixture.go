package models

import (
	"time"

	"github.com/uptrace/bun"
)

// FixtureStatus is the lifecycle of a scheduled pairing.
type FixtureStatus string

const (
	FixtureScheduled FixtureStatus = "scheduled"
	FixtureFinished  FixtureStatus = "finished"
)

// Fixture is one scheduled pairing within a round of a user's season.
// Every user's season has its own full calendar against the tier cohort,
// so fixtures carry the owning user alongside the competition/season keys.
type Fixture struct {
	bun.BaseModel `bun:"table:fixtures,alias:f"`

	FixtureID     int           `bun:"fixture_id,pk,autoincrement" json:"fixtureID"`
	PublicID      string        `bun:"public_id,notnull,unique" json:"publicID"`
	CompetitionID int           `bun:"competition_id,notnull" json:"competitionID"`
	SeasonYear    int           `bun:"season_year,notnull" json:"seasonYear"`
	UserID        int           `bun:"user_id,notnull" json:"userID"`
	Round         int           `bun:"round,notnull" json:"round"`
	HomeTeamID    int           `bun:"home_team_id,notnull" json:"homeTeamID"`
	AwayTeamID    int           `bun:"away_team_id,notnull" json:"awayTeamID"`
	ScheduledAt   time.Time     `bun:"scheduled_at,notnull" json:"scheduledAt"`
	Status        FixtureStatus `bun:"status,notnull,default:'scheduled'" json:"status"`
	HomeGoals     *int          `bun:"home_goals" json:"homeGoals,omitempty"`
	AwayGoals     *int          `bun:"away_goals" json:"awayGoals,omitempty"`
	// ResultApplied flips exactly once when the result is credited to the
	// standings and ledger rows. The claim is a conditional update, so a
	// result can never be double-counted.
	ResultApplied bool `bun:"result_applied,notnull,default:false" json:"resultApplied"`

	Home *Team `bun:"rel:belongs-to,join:home_team_id=team_id" json:"-"`
	Away *Team `bun:"rel:belongs-to,join:away_team_id=team_id" json:"-"`
}

// Finished reports whether a result has been recorded.
func (f *Fixture) Finished() bool {
	return f.Status == FixtureFinished
}
