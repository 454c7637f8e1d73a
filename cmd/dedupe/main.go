package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/devonwhite/dbmaint/internal/config"
	"github.com/devonwhite/dbmaint/internal/db"
	"github.com/devonwhite/dbmaint/internal/dedupe"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/devonwhite/dbmaint/internal/repo/postgres"
	"github.com/devonwhite/dbmaint/internal/runlock"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

// run carries the whole command so every deferred cleanup (lock release,
// tracer flush, pool close) completes before main turns the code into a
// process exit. os.Exit from inside here would skip them.
func run() int {
	dryRun := flag.Bool("dry-run", false, "report duplicate groups without deleting anything")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "dbmaint-dedupe", cfg.OtelEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		return 1
	}

	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	// guard against a second dedupe run interleaving deletions with ours
	if cfg.RedisAddr != "" {
		lock, err := runlock.Acquire(ctx, runlock.NewClient(runlock.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), "dbmaint:dedupe", 10*time.Minute)

		if err != nil {
			if errors.Is(err, runlock.ErrHeld) {
				log.Error("another dedupe run holds the lock, refusing to start")
			} else {
				log.Error("run lock failed", "err", err)
			}
			return 1
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()

			if err := lock.Release(ctx); err != nil {
				log.Error("run lock release failed", "err", err)
			}
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connection failed", "err", err)
		return 1
	}

	defer pool.Close()

	metrics := observability.NewMetrics()
	users := postgres.NewUsersRepo(pool, metrics)

	resolver := dedupe.NewResolver(users, metrics, log, dedupe.Options{DryRun: *dryRun})

	report, err := resolver.Resolve(ctx)

	if err != nil {
		log.Error("dedupe run failed", "err", err)
		return 1
	}

	log.Info("dedupe run complete",
		"runId", report.RunID,
		"dryRun", report.DryRun,
		"scanned", report.Scanned,
		"duplicateGroups", len(report.Groups),
		"deleted", report.Deleted,
		"wouldDelete", report.WouldDelete,
		"failed", report.Failed,
	)

	metrics.LogCounters(log)

	if report.Failed > 0 {
		return 1
	}

	return 0
}
