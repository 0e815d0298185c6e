package models

// MatchOutcome is the per-team delta derived from one finished match.
// Exactly one of Wins/Draws/Losses is 1.
type MatchOutcome struct {
	GoalsFor     int
	GoalsAgainst int
	Wins         int
	Draws        int
	Losses       int
	Points       int
}

// OutcomeFor builds the delta for a team that scored goalsFor and conceded
// goalsAgainst, using the configured point values.
func OutcomeFor(goalsFor, goalsAgainst, pointsWin, pointsDraw int) MatchOutcome {
	o := MatchOutcome{GoalsFor: goalsFor, GoalsAgainst: goalsAgainst}
	switch {
	case goalsFor > goalsAgainst:
		o.Wins = 1
		o.Points = pointsWin
	case goalsFor < goalsAgainst:
		o.Losses = 1
	default:
		o.Draws = 1
		o.Points = pointsDraw
	}
	return o
}

// TableRow is one ranked line of a league table view. It is the common shape
// behind both the tier-wide standings and a user's private table.
type TableRow struct {
	TeamID       int      `json:"teamID"`
	TeamName     string   `json:"teamName"`
	Kind         TeamKind `json:"kind"`
	Played       int      `json:"played"`
	Wins         int      `json:"wins"`
	Draws        int      `json:"draws"`
	Losses       int      `json:"losses"`
	GoalsFor     int      `json:"goalsFor"`
	GoalsAgainst int      `json:"goalsAgainst"`
	GoalDiff     int      `json:"goalDifference"`
	Points       int      `json:"points"`
	Rank         int      `json:"rank"`
}

// ApplyOutcome credits one finished match to the row.
func (r *TableRow) ApplyOutcome(o MatchOutcome) {
	r.Played++
	r.Wins += o.Wins
	r.Draws += o.Draws
	r.Losses += o.Losses
	r.GoalsFor += o.GoalsFor
	r.GoalsAgainst += o.GoalsAgainst
	r.GoalDiff = r.GoalsFor - r.GoalsAgainst
	r.Points += o.Points
}
