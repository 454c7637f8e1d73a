package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/devonwhite/dbmaint/internal/config"
	"github.com/devonwhite/dbmaint/internal/db"
	"github.com/devonwhite/dbmaint/internal/importer"
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
	file := flag.String("file", "stops.json", "JSON file with stop records to import")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "dbmaint-importstops", cfg.OtelEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		return 1
	}

	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	f, err := os.Open(*file)

	if err != nil {
		log.Error("open import file failed", "file", *file, "err", err)
		return 1
	}

	defer f.Close()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connection failed", "err", err)
		return 1
	}

	defer pool.Close()

	metrics := observability.NewMetrics()
	stops := postgres.NewStopsRepo(pool, metrics)

	im := importer.New(stops, metrics, log)

	summary, err := im.Run(ctx, f)

	if err != nil {
		log.Error("import failed", "file", *file, "err", err)
		return 1
	}

	for _, outcome := range summary.Outcomes {
		if outcome.Result == importer.ResultImported {
			continue
		}

		log.Warn("record not imported",
			"index", outcome.Index,
			"stopAddress", outcome.Address,
			"result", outcome.Result,
			"reason", outcome.Reason,
		)
	}

	total, err := stops.Count(ctx)

	if err != nil {
		log.Error("stop count failed", "err", err)
		return 1
	}

	log.Info("import summary",
		"file", *file,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
		"storedTotal", total,
	)

	metrics.LogCounters(log)

	if summary.Errored > 0 {
		return 1
	}

	return 0
}
