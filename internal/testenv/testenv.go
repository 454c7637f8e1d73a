// Package testenv pins process-wide state for test runs: environment
// defaults and telemetry suppression. Call Bootstrap from TestMain before
// anything reads config or starts a span.
package testenv

import (
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func Bootstrap() {
	os.Setenv("APP_ENV", "test")

	// make sure no exporter dials out during tests
	os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	otel.SetTracerProvider(noop.NewTracerProvider())
}
