package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/devonwhite/dbmaint/internal/config"
	"github.com/devonwhite/dbmaint/internal/db"
	"github.com/devonwhite/dbmaint/internal/indexes"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/joho/godotenv"
)

// stops_address_key is the unique index a past migration created by mistake;
// stop addresses are not unique.
const defaultIndex = "stops_address_key"

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup completes before the
// process exits.
func run() int {
	table := flag.String("table", "stops", "table whose indexes are listed")
	index := flag.String("index", defaultIndex, "index to drop")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "dbmaint-dropindex", cfg.OtelEndpoint)

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
	admin := indexes.NewAdmin(pool, metrics)

	if !logIndexes(ctx, admin, log, *table, "indexes before drop") {
		return 1
	}

	dropped, err := admin.Drop(ctx, *index)

	if err != nil {
		log.Error("index drop failed", "index", *index, "err", err)
		return 1
	}

	if dropped {
		log.Info("index dropped", "index", *index)
	} else {
		log.Info("index not found, nothing to drop", "index", *index)
	}

	if !logIndexes(ctx, admin, log, *table, "indexes after drop") {
		return 1
	}

	metrics.LogCounters(log)

	return 0
}

func logIndexes(ctx context.Context, admin *indexes.Admin, log *slog.Logger, table, msg string) bool {
	list, err := admin.List(ctx, table)

	if err != nil {
		log.Error("index listing failed", "table", table, "err", err)
		return false
	}

	names := make([]string, 0, len(list))
	for _, idx := range list {
		names = append(names, idx.Name)
	}

	log.Info(msg, "table", table, "indexes", names)

	return true
}
