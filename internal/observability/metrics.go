package observability

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RecordsScanned  prometheus.Counter
	DuplicateGroups prometheus.Counter
	RecordsDeleted  prometheus.Counter
	DeleteFailures  prometheus.Counter

	ImportResults *prometheus.CounterVec

	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbmaint",
			Name:      "records_scanned_total",
			Help:      "User records fetched and considered by a maintenance run.",
		}),
		DuplicateGroups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbmaint",
			Name:      "duplicate_groups_total",
			Help:      "Normalized-email groups that contained more than one record.",
		}),
		RecordsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbmaint",
			Name:      "records_deleted_total",
			Help:      "Duplicate records removed from the store.",
		}),
		DeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbmaint",
			Name:      "delete_failures_total",
			Help:      "Record deletions that failed and were carried into the report.",
		}),
		ImportResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dbmaint",
				Name:      "import_records_total",
				Help:      "Bulk import outcomes by result.",
			},
			[]string{"result"}, // imported | skipped | errored
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dbmaint",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dbmaint",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RecordsScanned,
		m.DuplicateGroups,
		m.RecordsDeleted,
		m.DeleteFailures,
		m.ImportResults,
		m.DbQueryDuration,
		m.DbErrorsTotal,
	)

	return m
}

// ObserveDB wraps a logical store operation, recording its duration and
// classifying any error for the errors counter.
func (m *Metrics) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		m.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	m.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

// LogCounters dumps every non-zero counter into the run log. Maintenance
// commands are short-lived, so there is no scrape endpoint; the final log
// line is the export.
func (m *Metrics) LogCounters(log *slog.Logger) {
	families, err := m.registry.Gather()

	if err != nil {
		log.Error("gather metrics", "err", err)
		return
	}

	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			counter := metric.GetCounter()
			if counter == nil || counter.GetValue() == 0 {
				continue
			}

			attrs := []any{"value", counter.GetValue()}
			for _, label := range metric.GetLabel() {
				attrs = append(attrs, label.GetName(), label.GetValue())
			}

			log.Debug(fam.GetName(), attrs...)
		}
	}
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "42704":
			return "undefined_object"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
