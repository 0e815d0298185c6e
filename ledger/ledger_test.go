package ledger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	"github.com/padraicbc/leagueapi/models"
	"github.com/padraicbc/leagueapi/standings"
)

func testRules() config.Rules {
	return config.Rules{PointsWin: 3, PointsDraw: 1}
}

type statKey struct {
	userID, tier, seasonYear, teamID int
}

// fakeStore holds ledger rows keyed by their full identity so tests can
// verify isolation between users directly.
type fakeStore struct {
	teams map[int]models.Team
	rows  map[statKey]*models.UserMachineTeamStat
}

func newFakeStore(teams map[int]models.Team) *fakeStore {
	return &fakeStore{teams: teams, rows: map[statKey]*models.UserMachineTeamStat{}}
}

func (s *fakeStore) ResetUserMachineStats(_ context.Context, userID, tier, seasonYear int, teamIDs []int) error {
	for k := range s.rows {
		if k.userID == userID && k.tier == tier && k.seasonYear == seasonYear {
			delete(s.rows, k)
		}
	}
	for _, id := range teamIDs {
		k := statKey{userID, tier, seasonYear, id}
		s.rows[k] = &models.UserMachineTeamStat{
			UserID: userID, Tier: tier, SeasonYear: seasonYear, TeamID: id,
		}
	}
	return nil
}

func (s *fakeStore) ApplyUserStatDeltas(_ context.Context, userID, tier, seasonYear int, deltas map[int]models.MatchOutcome) error {
	for teamID, o := range deltas {
		k := statKey{userID, tier, seasonYear, teamID}
		row, ok := s.rows[k]
		if !ok {
			row = &models.UserMachineTeamStat{
				UserID: userID, Tier: tier, SeasonYear: seasonYear, TeamID: teamID,
			}
			s.rows[k] = row
		}
		row.ApplyOutcome(o)
	}
	return nil
}

func (s *fakeStore) UserMachineStats(_ context.Context, userID, tier, seasonYear int) ([]models.UserMachineTeamStat, error) {
	var out []models.UserMachineTeamStat
	for k, row := range s.rows {
		if k.userID == userID && k.tier == tier && k.seasonYear == seasonYear {
			out = append(out, *row)
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

func teams() map[int]models.Team {
	owner := 7
	return map[int]models.Team{
		1: {TeamID: 1, Name: "Alba", Kind: models.TeamKindUser, OwnerID: &owner},
		2: {TeamID: 2, Name: "Boavista", Kind: models.TeamKindMachine},
		3: {TeamID: 3, Name: "Cruzeiro", Kind: models.TeamKindMachine},
	}
}

func finished(id, home, away int) *models.Fixture {
	return &models.Fixture{
		FixtureID:  id,
		SeasonYear: 2026,
		HomeTeamID: home,
		AwayTeamID: away,
		Status:     models.FixtureFinished,
	}
}

func TestApplyResultRejectsScheduledFixture(t *testing.T) {
	led := New(newFakeStore(teams()), testRules(), zap.NewNop())

	f := &models.Fixture{FixtureID: 1, HomeTeamID: 2, AwayTeamID: 3, Status: models.FixtureScheduled}
	err := led.ApplyResultForUser(context.Background(), 7, 2, 2026, f, 1, 0)
	if !errors.Is(err, standings.ErrMatchNotFinished) {
		t.Fatalf("err = %v, want ErrMatchNotFinished", err)
	}
}

func TestApplyResultMachineVsMachineCreditsBothSides(t *testing.T) {
	st := newFakeStore(teams())
	led := New(st, testRules(), zap.NewNop())
	ctx := context.Background()

	if err := led.InitializeForUser(ctx, 7, 2, 2026, []int{2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := led.ApplyResultForUser(ctx, 7, 2, 2026, finished(1, 2, 3), 4, 1); err != nil {
		t.Fatal(err)
	}

	winner := st.rows[statKey{7, 2, 2026, 2}]
	loser := st.rows[statKey{7, 2, 2026, 3}]
	if winner.Wins != 1 || winner.Points != 3 || winner.GoalsFor != 4 || winner.GoalsAgainst != 1 {
		t.Fatalf("winner row wrong: %+v", winner)
	}
	if loser.Losses != 1 || loser.Points != 0 || loser.GoalsFor != 1 || loser.GoalsAgainst != 4 {
		t.Fatalf("loser row wrong: %+v", loser)
	}
}

func TestApplyResultSkipsUserOwnedSide(t *testing.T) {
	st := newFakeStore(teams())
	led := New(st, testRules(), zap.NewNop())
	ctx := context.Background()

	if err := led.InitializeForUser(ctx, 7, 2, 2026, []int{2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := led.ApplyResultForUser(ctx, 7, 2, 2026, finished(1, 1, 2), 0, 2); err != nil {
		t.Fatal(err)
	}

	if _, ok := st.rows[statKey{7, 2, 2026, 1}]; ok {
		t.Fatal("ledger tracked the user's own team")
	}
	machine := st.rows[statKey{7, 2, 2026, 2}]
	if machine.Wins != 1 || machine.Points != 3 {
		t.Fatalf("machine opponent not credited: %+v", machine)
	}
}

func TestUsersStayIsolated(t *testing.T) {
	st := newFakeStore(teams())
	led := New(st, testRules(), zap.NewNop())
	ctx := context.Background()

	for _, userID := range []int{7, 8} {
		if err := led.InitializeForUser(ctx, userID, 2, 2026, []int{2, 3}); err != nil {
			t.Fatal(err)
		}
	}

	// Only user 7's season sees this result.
	if err := led.ApplyResultForUser(ctx, 7, 2, 2026, finished(1, 2, 3), 1, 0); err != nil {
		t.Fatal(err)
	}

	for _, row := range statsFor(t, led, 8, 2, 2026) {
		if row.Played != 0 || row.Points != 0 {
			t.Fatalf("user 8's row moved from user 7's result: %+v", row)
		}
	}
	got := map[int]models.UserMachineTeamStat{}
	for _, row := range statsFor(t, led, 7, 2, 2026) {
		got[row.TeamID] = row
	}
	if got[2].Wins != 1 || got[3].Losses != 1 {
		t.Fatalf("user 7's rows not credited: %+v", got)
	}
}

func TestInitializeWipesPriorStay(t *testing.T) {
	st := newFakeStore(teams())
	led := New(st, testRules(), zap.NewNop())
	ctx := context.Background()

	if err := led.InitializeForUser(ctx, 7, 2, 2026, []int{2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := led.ApplyResultForUser(ctx, 7, 2, 2026, finished(1, 2, 3), 2, 0); err != nil {
		t.Fatal(err)
	}

	// Re-entering the tier must start from zero, not inherit the prior stay.
	if err := led.InitializeForUser(ctx, 7, 2, 2026, []int{2, 3}); err != nil {
		t.Fatal(err)
	}
	rows := statsFor(t, led, 7, 2, 2026)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row.Played != 0 || row.Points != 0 || row.GoalsFor != 0 {
			t.Fatalf("stale stats survived re-initialization: %+v", row)
		}
	}
}

func statsFor(t *testing.T, led *Ledger, userID, tier, seasonYear int) []models.UserMachineTeamStat {
	t.Helper()
	rows, err := led.StatsForUser(context.Background(), userID, tier, seasonYear)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
