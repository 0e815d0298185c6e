package schedule

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/padraicbc/leagueapi/models"
)

func opts() Options {
	return Options{
		CompetitionID: 1,
		SeasonYear:    2026,
		UserID:        7,
		Start:         time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC),
		RoundInterval: 7 * 24 * time.Hour,
	}
}

type pair struct{ a, b int }

func unordered(home, away int) pair {
	if home > away {
		home, away = away, home
	}
	return pair{home, away}
}

func TestGenerateTooFewTeams(t *testing.T) {
	for _, ids := range [][]int{nil, {}, {1}} {
		if _, err := Generate(ids, opts()); !errors.Is(err, ErrInvalidTeamCount) {
			t.Fatalf("Generate(%v) err = %v, want ErrInvalidTeamCount", ids, err)
		}
	}
}

func TestGenerateFourTeams(t *testing.T) {
	fixtures, err := Generate([]int{1, 2, 3, 4}, opts())
	if err != nil {
		t.Fatal(err)
	}

	if len(fixtures) != 12 {
		t.Fatalf("got %d fixtures, want 12", len(fixtures))
	}

	rounds := map[int][]models.Fixture{}
	for _, f := range fixtures {
		rounds[f.Round] = append(rounds[f.Round], f)
	}
	if len(rounds) != 6 {
		t.Fatalf("got %d rounds, want 6", len(rounds))
	}
	for round, fs := range rounds {
		seen := map[int]bool{}
		for _, f := range fs {
			if f.HomeTeamID == f.AwayTeamID {
				t.Fatalf("round %d: team %d plays itself", round, f.HomeTeamID)
			}
			for _, id := range []int{f.HomeTeamID, f.AwayTeamID} {
				if seen[id] {
					t.Fatalf("round %d: team %d scheduled twice", round, id)
				}
				seen[id] = true
			}
		}
	}
}

func TestGenerateEvenCountsProperties(t *testing.T) {
	for _, n := range []int{2, 4, 6, 8, 10, 20} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := make([]int, n)
			for i := range ids {
				ids[i] = i + 1
			}
			fixtures, err := Generate(ids, opts())
			if err != nil {
				t.Fatal(err)
			}

			if want := n * (n - 1); len(fixtures) != want {
				t.Fatalf("got %d fixtures, want %d", len(fixtures), want)
			}

			// Each unordered pair appears exactly twice, once per venue.
			legs := map[pair][]models.Fixture{}
			maxRound := 0
			for _, f := range fixtures {
				legs[unordered(f.HomeTeamID, f.AwayTeamID)] = append(legs[unordered(f.HomeTeamID, f.AwayTeamID)], f)
				if f.Round > maxRound {
					maxRound = f.Round
				}
			}
			if want := n * (n - 1) / 2; len(legs) != want {
				t.Fatalf("got %d pairings, want %d", len(legs), want)
			}
			for p, fs := range legs {
				if len(fs) != 2 {
					t.Fatalf("pair %v met %d times, want 2", p, len(fs))
				}
				if fs[0].HomeTeamID == fs[1].HomeTeamID {
					t.Fatalf("pair %v plays both legs at the same venue", p)
				}
			}

			if want := Rounds(n); maxRound != want {
				t.Fatalf("max round %d, want %d", maxRound, want)
			}

			// No team twice in one round.
			perRound := map[int]map[int]bool{}
			for _, f := range fixtures {
				if perRound[f.Round] == nil {
					perRound[f.Round] = map[int]bool{}
				}
				for _, id := range []int{f.HomeTeamID, f.AwayTeamID} {
					if perRound[f.Round][id] {
						t.Fatalf("round %d: team %d scheduled twice", f.Round, id)
					}
					perRound[f.Round][id] = true
				}
			}
		})
	}
}

func TestGenerateOddCountRestWeeks(t *testing.T) {
	fixtures, err := Generate([]int{1, 2, 3, 4, 5}, opts())
	if err != nil {
		t.Fatal(err)
	}

	// 5 teams: every pair still meets twice, and each round has one team
	// drawn against the bye resting.
	if want := 5 * 4; len(fixtures) != want {
		t.Fatalf("got %d fixtures, want %d", len(fixtures), want)
	}

	games := map[int]int{}
	for _, f := range fixtures {
		if f.HomeTeamID == bye || f.AwayTeamID == bye {
			t.Fatalf("bye placeholder leaked into fixture %+v", f)
		}
		games[f.HomeTeamID]++
		games[f.AwayTeamID]++
	}
	for id, n := range games {
		if n != 8 {
			t.Fatalf("team %d plays %d games, want 8", id, n)
		}
	}

	rounds := map[int]int{}
	for _, f := range fixtures {
		rounds[f.Round]++
	}
	if len(rounds) != Rounds(5) {
		t.Fatalf("got %d rounds, want %d", len(rounds), Rounds(5))
	}
	for round, n := range rounds {
		if n != 2 {
			t.Fatalf("round %d has %d fixtures, want 2 (one team rests)", round, n)
		}
	}
}

func TestGenerateFixtureMetadata(t *testing.T) {
	o := opts()
	fixtures, err := Generate([]int{1, 2, 3, 4}, o)
	if err != nil {
		t.Fatal(err)
	}

	ids := map[string]bool{}
	for _, f := range fixtures {
		if f.CompetitionID != o.CompetitionID || f.SeasonYear != o.SeasonYear || f.UserID != o.UserID {
			t.Fatalf("fixture %+v lost its season context", f)
		}
		if f.Status != models.FixtureScheduled {
			t.Fatalf("fixture created with status %q", f.Status)
		}
		if f.PublicID == "" || ids[f.PublicID] {
			t.Fatalf("fixture public id %q missing or duplicated", f.PublicID)
		}
		ids[f.PublicID] = true

		want := o.Start.Add(time.Duration(f.Round-1) * o.RoundInterval)
		if !f.ScheduledAt.Equal(want) {
			t.Fatalf("round %d scheduled at %v, want %v", f.Round, f.ScheduledAt, want)
		}
	}
}
