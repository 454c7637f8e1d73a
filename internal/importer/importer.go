package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/devonwhite/dbmaint/internal/domain/stop"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	ResultImported = "imported"
	ResultSkipped  = "skipped"
	ResultErrored  = "errored"
)

// Store is the persistence boundary for the importer: one Create per valid
// input record.
type Store interface {
	Create(ctx context.Context, s stop.Stop) error
}

type RecordOutcome struct {
	Index   int    `json:"index"`
	Address string `json:"stopAddress,omitempty"`
	Result  string `json:"result"`
	Reason  string `json:"reason,omitempty"`
}

type Summary struct {
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
	Errored  int             `json:"errored"`
	Outcomes []RecordOutcome `json:"outcomes"`
}

type Importer struct {
	store    Store
	metrics  *observability.Metrics
	log      *slog.Logger
	validate *validator.Validate
}

func New(store Store, metrics *observability.Metrics, log *slog.Logger) *Importer {
	return &Importer{
		store:    store,
		metrics:  metrics,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Run decodes a JSON array of stop records and creates one persisted stop
// per valid input. Validation failures are skipped and store failures are
// errored; neither aborts the batch. A file that cannot be decoded at all is
// the only fatal outcome.
func (im *Importer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	var records []stop.ImportRecord

	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return Summary{}, fmt.Errorf("decode import file: %w", err)
	}

	var summary Summary

	for i, rec := range records {
		outcome := im.importOne(ctx, i, rec)

		switch outcome.Result {
		case ResultImported:
			summary.Imported++
		case ResultSkipped:
			summary.Skipped++
		case ResultErrored:
			summary.Errored++
		}

		im.metrics.ImportResults.WithLabelValues(outcome.Result).Inc()
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	im.log.Info("import finished",
		"records", len(records),
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
	)

	return summary, nil
}

func (im *Importer) importOne(ctx context.Context, index int, rec stop.ImportRecord) RecordOutcome {
	outcome := RecordOutcome{Index: index, Address: rec.Address}

	if err := im.validate.Struct(rec); err != nil {
		outcome.Result = ResultSkipped
		outcome.Reason = validationReason(err)

		im.log.Warn("import record skipped", "index", index, "reason", outcome.Reason)

		return outcome
	}

	s := stop.Stop{
		ID:          uuid.NewString(),
		Address:     rec.Address,
		Type:        stop.StopType(rec.Type),
		Description: rec.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := im.store.Create(ctx, s); err != nil {
		outcome.Result = ResultErrored
		outcome.Reason = err.Error()

		im.log.Error("import record failed", "index", index, "stopAddress", rec.Address, "err", err)

		return outcome
	}

	outcome.Result = ResultImported

	return outcome
}

// validationReason flattens validator errors into a per-record reason such
// as "stopAddress: required" or "stopType: oneof".
func validationReason(err error) string {
	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		return err.Error()
	}

	reasons := make([]string, 0, len(verrs))

	for _, fe := range verrs {
		reasons = append(reasons, jsonField(fe.Field())+": "+fe.Tag())
	}

	return strings.Join(reasons, ", ")
}

// jsonField maps the struct field names of stop.ImportRecord back to their
// JSON names so reasons read like the input file.
func jsonField(field string) string {
	switch field {
	case "Address":
		return "stopAddress"
	case "Type":
		return "stopType"
	default:
		return strings.ToLower(field[:1]) + field[1:]
	}
}
