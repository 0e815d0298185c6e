package models

import "github.com/uptrace/bun"

// Competition is one tier of the league ladder, reused across seasons by
// bumping SeasonYear. Tier 1 is the top flight.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:cp"`

	CompetitionID int    `bun:"competition_id,pk,autoincrement" json:"competitionID"`
	PublicID      string `bun:"public_id,notnull,unique" json:"publicID"`
	Tier          int    `bun:"tier,notnull,unique" json:"tier"`
	Capacity      int    `bun:"capacity,notnull" json:"capacity"`
	SeasonYear    int    `bun:"season_year,notnull" json:"seasonYear"`
	// CurrentTeams is derived from the teams table. It is only ever written
	// in the same operation that changes enrollment; see store.RecountEnrollment.
	CurrentTeams int `bun:"current_teams,notnull,default:0" json:"currentTeams"`
}
