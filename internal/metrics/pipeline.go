package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the prometheus collectors for the voice intake pipeline.
// A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	registry *prometheus.Registry

	intakeTotal      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	providerAttempts *prometheus.CounterVec
	patientUpserts   *prometheus.CounterVec
}

// NewPipeline creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		intakeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_intake_total",
				Help: "Total number of voice intake requests by final stage and outcome",
			},
			[]string{"stage", "result"}, // result: "success", "provider_error", "incomplete", "error"
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voice_intake_stage_duration_seconds",
				Help:    "Time spent in each voice intake stage",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		providerAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_call_attempts_total",
				Help: "Total number of upstream provider call attempts",
			},
			[]string{"provider", "attempt", "status"},
		),
		patientUpserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patient_upserts_total",
				Help: "Total number of patient upserts by path",
			},
			[]string{"path"}, // "insert", "update", "race_update"
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.intakeTotal,
		p.stageDuration,
		p.providerAttempts,
		p.patientUpserts,
	)
	return p
}

// Handler exposes the registry in the prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry (used by tests).
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// RecordIntake counts a finished intake by the last stage reached and its outcome.
func (p *Pipeline) RecordIntake(_ context.Context, stage, result string) {
	if p == nil {
		return
	}
	p.intakeTotal.WithLabelValues(stage, result).Inc()
}

// ObserveStage records how long one intake stage took.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ProviderAttempt returns a hook suitable for retry.Policy.OnAttempt.
func (p *Pipeline) ProviderAttempt(providerName string) func(attempt int, err error) {
	return func(attempt int, err error) {
		if p == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "failure"
		}
		p.providerAttempts.WithLabelValues(providerName, strconv.Itoa(attempt), status).Inc()
	}
}

// RecordUpsert counts a patient upsert by the path it took.
func (p *Pipeline) RecordUpsert(_ context.Context, path string) {
	if p == nil {
		return
	}
	p.patientUpserts.WithLabelValues(path).Inc()
}
