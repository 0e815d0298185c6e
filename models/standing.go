package models

import "github.com/uptrace/bun"

// Standing is the tier-wide aggregate for one team in one season.
type Standing struct {
	bun.BaseModel `bun:"table:standings,alias:s"`

	ID            int `bun:"id,pk,autoincrement" json:"id"`
	CompetitionID int `bun:"competition_id,notnull" json:"competitionID"`
	SeasonYear    int `bun:"season_year,notnull" json:"seasonYear"`
	TeamID        int `bun:"team_id,notnull" json:"teamID"`
	Played        int `bun:"played,notnull,default:0" json:"played"`
	Wins          int `bun:"wins,notnull,default:0" json:"wins"`
	Draws         int `bun:"draws,notnull,default:0" json:"draws"`
	Losses        int `bun:"losses,notnull,default:0" json:"losses"`
	GoalsFor      int `bun:"goals_for,notnull,default:0" json:"goalsFor"`
	GoalsAgainst  int `bun:"goals_against,notnull,default:0" json:"goalsAgainst"`
	Points        int `bun:"points,notnull,default:0" json:"points"`
	Rank          int `bun:"rank,notnull,default:0" json:"rank"`

	Team *Team `bun:"rel:belongs-to,join:team_id=team_id" json:"-"`
}

// GoalDiff is goals scored minus goals conceded.
func (s *Standing) GoalDiff() int {
	return s.GoalsFor - s.GoalsAgainst
}

// ApplyOutcome credits one finished match to the aggregate.
func (s *Standing) ApplyOutcome(o MatchOutcome) {
	s.Played++
	s.Wins += o.Wins
	s.Draws += o.Draws
	s.Losses += o.Losses
	s.GoalsFor += o.GoalsFor
	s.GoalsAgainst += o.GoalsAgainst
	s.Points += o.Points
}
