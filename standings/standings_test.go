package standings

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/models"
)

func testRules() config.Rules {
	return config.Rules{
		TopTier:        1,
		BottomTier:     4,
		Capacity:       20,
		PromotionZone:  4,
		RelegationZone: 4,
		PointsWin:      3,
		PointsDraw:     1,
	}
}

// fakeStore keeps one competition season in memory.
type fakeStore struct {
	fixtures []models.Fixture
	teams    map[int]models.Team
	rows     map[int]*models.Standing
	applied  map[int]bool
	replaced []models.Standing
}

func newFakeStore(teams map[int]models.Team) *fakeStore {
	return &fakeStore{
		teams:   teams,
		rows:    map[int]*models.Standing{},
		applied: map[int]bool{},
	}
}

func (s *fakeStore) FinishedFixtures(_ context.Context, competitionID, seasonYear int) ([]models.Fixture, error) {
	var out []models.Fixture
	for _, f := range s.fixtures {
		if f.CompetitionID == competitionID && f.SeasonYear == seasonYear && f.Finished() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) TeamsByID(_ context.Context, ids []int) (map[int]models.Team, error) {
	out := map[int]models.Team{}
	for _, id := range ids {
		if t, ok := s.teams[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (s *fakeStore) ReplaceStandings(_ context.Context, competitionID, seasonYear int, rows []models.Standing) error {
	s.replaced = rows
	return nil
}

func (s *fakeStore) ApplyStandingResult(_ context.Context, fixtureID int, deltas map[int]models.MatchOutcome) (bool, error) {
	if s.applied[fixtureID] {
		return false, nil
	}
	s.applied[fixtureID] = true
	for teamID, o := range deltas {
		row, ok := s.rows[teamID]
		if !ok {
			row = &models.Standing{TeamID: teamID}
			s.rows[teamID] = row
		}
		row.ApplyOutcome(o)
	}
	return true, nil
}

func finished(id, home, away, hg, ag int) models.Fixture {
	return models.Fixture{
		FixtureID:     id,
		CompetitionID: 1,
		SeasonYear:    2026,
		HomeTeamID:    home,
		AwayTeamID:    away,
		Status:        models.FixtureFinished,
		HomeGoals:     &hg,
		AwayGoals:     &ag,
	}
}

func fourTeams() map[int]models.Team {
	return map[int]models.Team{
		1: {TeamID: 1, Name: "Alba", Kind: models.TeamKindUser},
		2: {TeamID: 2, Name: "Boavista", Kind: models.TeamKindMachine},
		3: {TeamID: 3, Name: "Cruzeiro", Kind: models.TeamKindMachine},
		4: {TeamID: 4, Name: "Dourado", Kind: models.TeamKindMachine},
	}
}

func TestOutcomes(t *testing.T) {
	rules := testRules()

	home, away := Outcomes(2, 0, rules)
	if home.Wins != 1 || home.Points != 3 || away.Losses != 1 || away.Points != 0 {
		t.Fatalf("home win scored wrong: home %+v away %+v", home, away)
	}

	home, away = Outcomes(1, 1, rules)
	if home.Draws != 1 || home.Points != 1 || away.Draws != 1 || away.Points != 1 {
		t.Fatalf("draw scored wrong: home %+v away %+v", home, away)
	}

	home, away = Outcomes(0, 3, rules)
	if home.Losses != 1 || home.Points != 0 || away.Wins != 1 || away.Points != 3 {
		t.Fatalf("away win scored wrong: home %+v away %+v", home, away)
	}
}

func TestRankRowsDeterministicOrder(t *testing.T) {
	rows := []models.TableRow{
		{TeamID: 1, TeamName: "Zenith", Points: 10, GoalDiff: 5, GoalsFor: 12},
		{TeamID: 2, TeamName: "Arden", Points: 10, GoalDiff: 5, GoalsFor: 12},
		{TeamID: 3, TeamName: "Mota", Points: 10, GoalDiff: 7, GoalsFor: 9},
		{TeamID: 4, TeamName: "Kelba", Points: 12, GoalDiff: 0, GoalsFor: 4},
		{TeamID: 5, TeamName: "Luzia", Points: 10, GoalDiff: 5, GoalsFor: 15},
	}
	ranked := RankRows(rows)

	wantOrder := []string{"Kelba", "Mota", "Luzia", "Arden", "Zenith"}
	for i, name := range wantOrder {
		if ranked[i].TeamName != name {
			t.Fatalf("position %d = %s, want %s", i+1, ranked[i].TeamName, name)
		}
		if ranked[i].Rank != i+1 {
			t.Fatalf("position %d has rank %d", i+1, ranked[i].Rank)
		}
	}
}

func TestApplyResultRejectsScheduledFixture(t *testing.T) {
	agg := New(newFakeStore(fourTeams()), testRules(), zap.NewNop())

	f := models.Fixture{FixtureID: 1, HomeTeamID: 1, AwayTeamID: 2, Status: models.FixtureScheduled}
	if _, err := agg.ApplyResult(context.Background(), &f, 1, 0); !errors.Is(err, ErrMatchNotFinished) {
		t.Fatalf("err = %v, want ErrMatchNotFinished", err)
	}
}

func TestApplyResultIdempotent(t *testing.T) {
	st := newFakeStore(fourTeams())
	agg := New(st, testRules(), zap.NewNop())
	ctx := context.Background()

	f := finished(1, 1, 2, 3, 1)
	if applied, err := agg.ApplyResult(ctx, &f, 3, 1); err != nil || !applied {
		t.Fatalf("first apply: applied=%v err=%v", applied, err)
	}
	snapshot := map[int]models.Standing{}
	for id, row := range st.rows {
		snapshot[id] = *row
	}

	if applied, err := agg.ApplyResult(ctx, &f, 3, 1); err != nil || applied {
		t.Fatalf("second apply: applied=%v err=%v, want clean no-op", applied, err)
	}
	for id, row := range st.rows {
		if !reflect.DeepEqual(snapshot[id], *row) {
			t.Fatalf("team %d standings changed on replay: %+v -> %+v", id, snapshot[id], *row)
		}
	}
}

func TestApplyResultCommutative(t *testing.T) {
	f1 := finished(1, 1, 2, 2, 2)
	f2 := finished(2, 3, 4, 0, 1)
	ctx := context.Background()

	run := func(order []models.Fixture) map[int]models.Standing {
		st := newFakeStore(fourTeams())
		agg := New(st, testRules(), zap.NewNop())
		for i := range order {
			f := order[i]
			if _, err := agg.ApplyResult(ctx, &f, *f.HomeGoals, *f.AwayGoals); err != nil {
				t.Fatal(err)
			}
		}
		out := map[int]models.Standing{}
		for id, row := range st.rows {
			out[id] = *row
		}
		return out
	}

	forward := run([]models.Fixture{f1, f2})
	backward := run([]models.Fixture{f2, f1})
	if !reflect.DeepEqual(forward, backward) {
		t.Fatalf("result order changed final standings:\n%+v\nvs\n%+v", forward, backward)
	}
}

func TestRecomputeMatchesIncremental(t *testing.T) {
	fixtures := []models.Fixture{
		finished(1, 1, 2, 2, 0),
		finished(2, 3, 4, 1, 1),
		finished(3, 2, 1, 3, 2),
		finished(4, 4, 3, 0, 2),
		finished(5, 1, 3, 1, 1),
		finished(6, 2, 4, 0, 4),
	}
	ctx := context.Background()

	inc := newFakeStore(fourTeams())
	aggInc := New(inc, testRules(), zap.NewNop())
	for i := range fixtures {
		f := fixtures[i]
		if _, err := aggInc.ApplyResult(ctx, &f, *f.HomeGoals, *f.AwayGoals); err != nil {
			t.Fatal(err)
		}
	}

	full := newFakeStore(fourTeams())
	full.fixtures = fixtures
	aggFull := New(full, testRules(), zap.NewNop())
	recomputed, err := aggFull.Recompute(ctx, 1, 2026)
	if err != nil {
		t.Fatal(err)
	}

	if len(recomputed) != len(inc.rows) {
		t.Fatalf("recompute has %d rows, incremental %d", len(recomputed), len(inc.rows))
	}
	for _, r := range recomputed {
		row := inc.rows[r.TeamID]
		if row == nil {
			t.Fatalf("incremental path missing team %d", r.TeamID)
		}
		got := []int{row.Played, row.Wins, row.Draws, row.Losses, row.GoalsFor, row.GoalsAgainst, row.Points}
		want := []int{r.Played, r.Wins, r.Draws, r.Losses, r.GoalsFor, r.GoalsAgainst, r.Points}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("team %d diverged: incremental %v, recompute %v", r.TeamID, got, want)
		}
	}
}

func TestRecomputeCreatesRowsForUnknownTeams(t *testing.T) {
	// Team 9 entered mid-season and has no teams-table row yet; the
	// aggregator must create a zero-based standing rather than fail.
	st := newFakeStore(fourTeams())
	st.fixtures = []models.Fixture{finished(1, 1, 9, 0, 2)}
	agg := New(st, testRules(), zap.NewNop())

	rows, err := agg.Recompute(context.Background(), 1, 2026)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].TeamID != 9 || rows[0].Points != 3 {
		t.Fatalf("unknown team not ranked from zero: %+v", rows[0])
	}
}
