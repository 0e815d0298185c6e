package models

import "github.com/uptrace/bun"

// SeasonStatus is the lifecycle of a user's season.
type SeasonStatus string

const (
	SeasonActive    SeasonStatus = "active"
	SeasonCompleted SeasonStatus = "completed"
)

// UserCompetitionProgress tracks how far a user's own season has advanced in
// one tier. At most one active row may exist per user; a partial unique index
// on (user_id) WHERE season_status = 'active' enforces that structurally.
// Completed rows remain as history.
type UserCompetitionProgress struct {
	bun.BaseModel `bun:"table:user_competition_progress,alias:up"`

	ID            int          `bun:"id,pk,autoincrement" json:"id"`
	UserID        int          `bun:"user_id,notnull" json:"userID"`
	TeamID        int          `bun:"team_id,notnull" json:"teamID"`
	CompetitionID int          `bun:"competition_id,notnull" json:"competitionID"`
	Tier          int          `bun:"tier,notnull" json:"tier"`
	SeasonYear    int          `bun:"season_year,notnull" json:"seasonYear"`
	Played        int          `bun:"played,notnull,default:0" json:"played"`
	Wins          int          `bun:"wins,notnull,default:0" json:"wins"`
	Draws         int          `bun:"draws,notnull,default:0" json:"draws"`
	Losses        int          `bun:"losses,notnull,default:0" json:"losses"`
	GoalsFor      int          `bun:"goals_for,notnull,default:0" json:"goalsFor"`
	GoalsAgainst  int          `bun:"goals_against,notnull,default:0" json:"goalsAgainst"`
	Points        int          `bun:"points,notnull,default:0" json:"points"`
	CurrentRank   int          `bun:"current_rank,notnull,default:0" json:"currentRank"`
	SeasonStatus  SeasonStatus `bun:"season_status,notnull,default:'active'" json:"seasonStatus"`
}

// GoalDiff is goals scored minus goals conceded.
func (p *UserCompetitionProgress) GoalDiff() int {
	return p.GoalsFor - p.GoalsAgainst
}
