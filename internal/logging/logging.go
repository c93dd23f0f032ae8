// Package logging configures the process-wide zerolog logger and the per-request
// logger carried in the request context.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
)

// RequestIDHeader carries the request id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// Setup builds the global logger from cfg and makes it the default for contexts
// without a logger. A nil out writes to stdout.
func Setup(cfg config.LogConfig, service string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	case "ecs":
		logger = ecszerolog.New(out)
	default:
		logger = zerolog.New(out)
	}
	logger = logger.With().Timestamp().Str("service", service).Logger()

	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return logger
}

// Middleware attaches a request-scoped logger with a request_id to every request
// and logs one line per completed request.
func Middleware(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			logger := base.With().Str("request_id", requestID).Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			m := httpsnoop.CaptureMetrics(next, w, r)

			ev := logger.Info()
			if m.Code >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", m.Code).
				Int64("bytes", m.Written).
				Dur("duration", m.Duration).
				Msg("HTTP request")
		})
	}
}
