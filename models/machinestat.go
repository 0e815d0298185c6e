package models

import "github.com/uptrace/bun"

// UserMachineTeamStat mirrors a Standing for one machine team, scoped to a
// single user's season. Machine teams are shared across users, so aggregates
// are never keyed on team alone: the identity is (user, season, tier, team),
// and two users playing the same opponent never see each other's results.
// Rows are wiped and recreated at every tier entry, never carried over.
type UserMachineTeamStat struct {
	bun.BaseModel `bun:"table:user_machine_team_stats,alias:ms"`

	ID           int `bun:"id,pk,autoincrement" json:"id"`
	UserID       int `bun:"user_id,notnull" json:"userID"`
	Tier         int `bun:"tier,notnull" json:"tier"`
	SeasonYear   int `bun:"season_year,notnull" json:"seasonYear"`
	TeamID       int `bun:"team_id,notnull" json:"teamID"`
	Played       int `bun:"played,notnull,default:0" json:"played"`
	Wins         int `bun:"wins,notnull,default:0" json:"wins"`
	Draws        int `bun:"draws,notnull,default:0" json:"draws"`
	Losses       int `bun:"losses,notnull,default:0" json:"losses"`
	GoalsFor     int `bun:"goals_for,notnull,default:0" json:"goalsFor"`
	GoalsAgainst int `bun:"goals_against,notnull,default:0" json:"goalsAgainst"`
	Points       int `bun:"points,notnull,default:0" json:"points"`

	Team *Team `bun:"rel:belongs-to,join:team_id=team_id" json:"-"`
}

// GoalDiff is goals scored minus goals conceded.
func (m *UserMachineTeamStat) GoalDiff() int {
	return m.GoalsFor - m.GoalsAgainst
}

// ApplyOutcome credits one finished match to the aggregate.
func (m *UserMachineTeamStat) ApplyOutcome(o MatchOutcome) {
	m.Played++
	m.Wins += o.Wins
	m.Draws += o.Draws
	m.Losses += o.Losses
	m.GoalsFor += o.GoalsFor
	m.GoalsAgainst += o.GoalsAgainst
	m.Points += o.Points
}
