package dedupe

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/devonwhite/dbmaint/internal/domain/user"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Store is the persistence boundary the resolver needs: an ordered scan and
// single-record deletion. The handle is passed in explicitly so runs can
// target the in-memory store in tests.
type Store interface {
	FetchAll(ctx context.Context) ([]user.User, error)
	DeleteByID(ctx context.Context, id string) error
}

type Options struct {
	// DryRun produces the full report without deleting anything.
	DryRun bool
}

type Resolver struct {
	store   Store
	metrics *observability.Metrics
	log     *slog.Logger
	opts    Options
}

func NewResolver(store Store, metrics *observability.Metrics, log *slog.Logger, opts Options) *Resolver {
	return &Resolver{
		store:   store,
		metrics: metrics,
		log:     log,
		opts:    opts,
	}
}

// Resolve scans the whole users collection, partitions it by normalized
// email, and for every group larger than one keeps exactly one record and
// deletes the rest. The kept record is the most recently created admin when
// the group has one, otherwise the most recently created record.
//
// Deletions continue past individual failures; each failure lands in the
// report and the caller decides the exit code. Only a failed scan aborts the
// run.
func (r *Resolver) Resolve(ctx context.Context) (Report, error) {
	tracer := otel.Tracer("dbmaint/dedupe")
	ctx, span := tracer.Start(ctx, "dedupe.resolve")
	defer span.End()

	report := Report{
		RunID:  uuid.NewString(),
		DryRun: r.opts.DryRun,
	}

	records, err := r.store.FetchAll(ctx)

	if err != nil {
		return report, err
	}

	report.Scanned = len(records)
	r.metrics.RecordsScanned.Add(float64(len(records)))

	// The tie-break depends on most-recent-first order, so enforce it here
	// instead of trusting whatever order the store returned. Stable sort
	// keeps ties deterministic.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	groups := partition(records)

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		result := r.resolveGroup(ctx, group)

		report.Groups = append(report.Groups, result)
		if r.opts.DryRun {
			report.WouldDelete += len(result.RemovedIDs)
		} else {
			report.Deleted += len(result.RemovedIDs)
		}
		report.Failed += len(result.Failures)

		r.metrics.DuplicateGroups.Inc()
	}

	span.SetAttributes(
		attribute.Int("dedupe.scanned", report.Scanned),
		attribute.Int("dedupe.groups", len(report.Groups)),
		attribute.Int("dedupe.deleted", report.Deleted),
		attribute.Int("dedupe.failed", report.Failed),
	)

	return report, nil
}

// partition groups records by normalized email, preserving the incoming
// record order within each group and the first-seen order of groups.
func partition(records []user.User) [][]user.User {
	index := make(map[string]int, len(records))
	var groups [][]user.User

	for _, rec := range records {
		key := user.NormalizeEmail(rec.Email)

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}

		groups[i] = append(groups[i], rec)
	}

	return groups
}

func (r *Resolver) resolveGroup(ctx context.Context, group []user.User) GroupResult {
	kept, reason := pickKeeper(group)

	result := GroupResult{
		Email:      user.NormalizeEmail(kept.Email),
		Size:       len(group),
		KeptID:     kept.ID,
		KeepReason: reason,
	}

	for _, rec := range group {
		if rec.ID == kept.ID {
			continue
		}

		if r.opts.DryRun {
			result.RemovedIDs = append(result.RemovedIDs, rec.ID)
			continue
		}

		err := r.store.DeleteByID(ctx, rec.ID)

		// a record already gone is exactly the outcome we wanted
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			r.log.Error("delete duplicate failed", "id", rec.ID, "email", result.Email, "err", err)
			r.metrics.DeleteFailures.Inc()
			result.Failures = append(result.Failures, DeleteFailure{ID: rec.ID, Err: err.Error()})
			continue
		}

		r.metrics.RecordsDeleted.Inc()
		result.RemovedIDs = append(result.RemovedIDs, rec.ID)
	}

	r.log.Info("duplicate group resolved",
		"email", result.Email,
		"size", result.Size,
		"kept", result.KeptID,
		"reason", result.KeepReason,
		"removed", len(result.RemovedIDs),
		"failed", len(result.Failures),
		"dryRun", r.opts.DryRun,
	)

	return result
}

// pickKeeper selects the record to retain from a duplicate group. The group
// is ordered most-recent-first, so the first admin is the newest admin and
// the first record overall is the newest record.
func pickKeeper(group []user.User) (user.User, string) {
	for _, rec := range group {
		if rec.IsAdmin() {
			return rec, KeepReasonAdmin
		}
	}

	return group[0], KeepReasonMostRecent
}
