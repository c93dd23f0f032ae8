package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments for the service
type Metrics struct {
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	PatientUpsertsTotal metric.Int64Counter
	VoiceIntakeTotal    metric.Int64Counter

	AuthFailuresTotal metric.Int64Counter
}

// InitMetrics creates the instruments on the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/voice-intake-service")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	patientUpsertsTotal, err := meter.Int64Counter(
		"patient_upserts",
		metric.WithDescription("Total number of patient upserts by path"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	voiceIntakeTotal, err := meter.Int64Counter(
		"voice_intake_requests",
		metric.WithDescription("Total number of voice intake requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPDurationMs:      httpDurationMs,
		PatientUpsertsTotal: patientUpsertsTotal,
		VoiceIntakeTotal:    voiceIntakeTotal,
		AuthFailuresTotal:   authFailuresTotal,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordUpsert records the path a patient upsert took.
func (m *Metrics) RecordUpsert(ctx context.Context, path string) {
	m.PatientUpsertsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
	))
}

// RecordIntake records the outcome of a voice intake request.
func (m *Metrics) RecordIntake(ctx context.Context, stage, result string) {
	m.VoiceIntakeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("result", result),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// HTTPMiddleware records request count and latency per route template.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		snoop := httpsnoop.CaptureMetrics(next, w, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tmpl, err := cr.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.RecordHTTPRequest(r.Context(), r.Method, route, snoop.Code,
			float64(time.Since(start).Microseconds())/1000)
	})
}
