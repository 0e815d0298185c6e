// Package schedule generates double round-robin season calendars.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/padraicbc/leagueapi/models"
)

// ErrInvalidTeamCount is returned when fewer than two teams are supplied.
var ErrInvalidTeamCount = errors.New("schedule: at least 2 teams required")

// bye is the placeholder slotted in when the team count is odd. The team
// drawn against it simply has a rest week; no fixture is emitted.
const bye = 0

// Options scope a generated calendar to one user's season context.
type Options struct {
	CompetitionID int
	SeasonYear    int
	UserID        int
	// Start is the slot of round 1; each later round is RoundInterval after
	// the previous one.
	Start         time.Time
	RoundInterval time.Duration
}

// Generate produces the full double round-robin calendar for the given
// teams: every unordered pair meets exactly twice, home side swapped between
// the legs, and no team appears twice in one round. For n teams (n even)
// that is n*(n-1) fixtures across 2(n-1) rounds, numbered from 1.
//
// The circle method is used: the first team stays fixed while the rest
// rotate one position each round, pairing opposite positions. Running the
// circle once gives the first leg; the return leg mirrors it with venues
// swapped.
func Generate(teamIDs []int, opts Options) ([]models.Fixture, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTeamCount, len(teamIDs))
	}

	ids := make([]int, len(teamIDs))
	copy(ids, teamIDs)
	if len(ids)%2 != 0 {
		ids = append(ids, bye)
	}
	n := len(ids)
	roundsPerLeg := n - 1

	firstLeg := make([]models.Fixture, 0, n/2*roundsPerLeg)
	for i := 0; i < roundsPerLeg; i++ {
		round := i + 1
		for j := 0; j < n/2; j++ {
			home, away := ids[j], ids[n-1-j]
			if home == bye || away == bye {
				continue
			}
			// Alternate the fixed team's venue so home games spread evenly
			// instead of piling onto position 0.
			if j == 0 && round%2 == 0 {
				home, away = away, home
			}
			firstLeg = append(firstLeg, newFixture(home, away, round, opts))
		}

		// Rotate all positions except the first.
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}

	fixtures := firstLeg
	for _, f := range firstLeg {
		fixtures = append(fixtures, newFixture(f.AwayTeamID, f.HomeTeamID, f.Round+roundsPerLeg, opts))
	}
	return fixtures, nil
}

// Rounds is the number of rounds a double round-robin over teamCount teams
// spans, accounting for the bye slot on odd counts.
func Rounds(teamCount int) int {
	if teamCount%2 != 0 {
		teamCount++
	}
	return 2 * (teamCount - 1)
}

func newFixture(home, away, round int, opts Options) models.Fixture {
	return models.Fixture{
		PublicID:      uuid.NewString(),
		CompetitionID: opts.CompetitionID,
		SeasonYear:    opts.SeasonYear,
		UserID:        opts.UserID,
		Round:         round,
		HomeTeamID:    home,
		AwayTeamID:    away,
		ScheduledAt:   opts.Start.Add(time.Duration(round-1) * opts.RoundInterval),
		Status:        models.FixtureScheduled,
	}
}
