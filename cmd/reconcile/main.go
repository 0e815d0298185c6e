// cmd/reconcile/main.go
// Scheduled consistency job: rebuilds every competition's standings from its
// finished fixtures and recounts tier enrollment. The incremental path keeps
// both current in normal operation; this repairs any drift left by crashes
// or by data imported from the legacy scripts.
//
// Usage:
//
//	go run ./cmd/reconcile          # run on the RECONCILE_SPEC cron schedule
//	go run ./cmd/reconcile -once    # run a single pass and exit
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/padraicbc/leagueapi/config"
	bundb "github.com/padraicbc/leagueapi/db"
	applog "github.com/padraicbc/leagueapi/logger"
	"github.com/padraicbc/leagueapi/models"
	"github.com/padraicbc/leagueapi/standings"
	"github.com/padraicbc/leagueapi/store"
)

func main() {
	once := flag.Bool("once", false, "run a single reconcile pass and exit")
	flag.Parse()

	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db := bundb.Setup(cfg)
	defer db.Close()

	st := store.New(db)
	agg := standings.New(st, cfg.Rules, logger)

	run := func() {
		if err := reconcile(context.Background(), st, agg, logger); err != nil {
			logger.Error("reconcile pass failed", zap.Error(err))
		}
	}

	if *once {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSpec, run); err != nil {
		logger.Fatal("invalid RECONCILE_SPEC", zap.String("spec", cfg.ReconcileSpec), zap.Error(err))
	}
	c.Start()
	logger.Info("reconcile scheduled", zap.String("spec", cfg.ReconcileSpec))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx := c.Stop()
	<-ctx.Done()
	logger.Info("reconcile stopped")
}

func reconcile(ctx context.Context, st *store.Store, agg *standings.Aggregator, logger *zap.Logger) error {
	comps, err := st.Competitions(ctx)
	if err != nil {
		return err
	}

	for _, comp := range comps {
		before, err := st.Standings(ctx, comp.CompetitionID, comp.SeasonYear)
		if err != nil {
			return err
		}
		after, err := agg.Recompute(ctx, comp.CompetitionID, comp.SeasonYear)
		if err != nil {
			return err
		}
		if drifted(before, after) {
			logger.Warn("standings drift repaired",
				zap.Int("tier", comp.Tier),
				zap.Int("seasonYear", comp.SeasonYear),
				zap.Int("rows", len(after)))
		}

		if err := st.RecountEnrollment(ctx, comp.Tier); err != nil {
			return err
		}
		logger.Info("competition reconciled",
			zap.Int("tier", comp.Tier),
			zap.Int("seasonYear", comp.SeasonYear))
	}
	return nil
}

// drifted reports whether the stored table differed from the rebuilt one in
// any aggregate field.
func drifted(before, after []models.Standing) bool {
	if len(before) != len(after) {
		return true
	}
	byTeam := make(map[int]models.Standing, len(before))
	for _, s := range before {
		byTeam[s.TeamID] = s
	}
	for _, a := range after {
		b, ok := byTeam[a.TeamID]
		if !ok {
			return true
		}
		if b.Played != a.Played || b.Wins != a.Wins || b.Draws != a.Draws ||
			b.Losses != a.Losses || b.GoalsFor != a.GoalsFor ||
			b.GoalsAgainst != a.GoalsAgainst || b.Points != a.Points {
			return true
		}
	}
	return false
}
