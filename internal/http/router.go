package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/auth"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/intake"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/logging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/metrics"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/telemetry"
)

// Dependencies collects everything the router needs. Telemetry and Verifier
// are optional.
type Dependencies struct {
	ServiceName string
	Logger      zerolog.Logger
	CORS        config.CORSConfig

	Patients *patient.Handler
	Intake   *intake.Handler

	Metrics   *metrics.Pipeline
	Telemetry *telemetry.Metrics
	Verifier  *auth.Verifier
}

// publicPaths are served without a bearer token even when auth is enabled.
var publicPaths = []string{"/health", "/metrics"}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) http.Handler {
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "voice-intake-service"
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	if deps.Telemetry != nil {
		r.Use(deps.Telemetry.HTTPMiddleware)
	}
	if deps.Verifier != nil {
		var recorder auth.MetricsRecorder
		if deps.Telemetry != nil {
			recorder = deps.Telemetry
		}
		r.Use(auth.Middleware(deps.Verifier, recorder, publicPaths...))
	}

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	}).Methods("GET")

	r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")

	// Patient routes
	r.HandleFunc("/patients", deps.Patients.ListPatients).Methods("GET")
	r.HandleFunc("/patients", deps.Patients.CreatePatient).Methods("POST")
	r.HandleFunc("/patients/{id}", deps.Patients.GetPatient).Methods("GET")

	// Voice intake
	r.HandleFunc("/voice-input", deps.Intake.VoiceInput).Methods("POST")

	// CORS sits outside the router so preflight requests never hit method matching.
	return logging.Middleware(deps.Logger)(CORSMiddleware(deps.CORS)(r))
}
