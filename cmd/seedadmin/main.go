package main

import (
	"context"
	"os"
	"time"

	"github.com/devonwhite/dbmaint/internal/config"
	"github.com/devonwhite/dbmaint/internal/db"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/devonwhite/dbmaint/internal/repo/postgres"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup completes before the
// process exits.
func run() int {
	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "dbmaint-seedadmin", cfg.OtelEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		return 1
	}

	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connection failed", "err", err)
		return 1
	}

	defer pool.Close()

	metrics := observability.NewMetrics()
	users := postgres.NewUsersRepo(pool, metrics)

	if err := db.EnsureAdminUser(ctx, users, cfg, log); err != nil {
		log.Error("admin seeding failed", "err", err)
		return 1
	}

	metrics.LogCounters(log)

	return 0
}
