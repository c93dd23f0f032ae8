package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/auth"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/db"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/extraction"
	httpserver "github.com/WailSalutem-Health-Care/voice-intake-service/internal/http"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/intake"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/logging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/metrics"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/retry"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/transcription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := logging.Setup(cfg.Log, cfg.ServiceName, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.ValidateDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid database configuration")
	}

	ctx := context.Background()

	var otelMetrics *telemetry.Metrics
	if cfg.EnableTelemetry {
		provider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig(cfg.ServiceName))
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				provider.Shutdown(shutdownCtx)
			}()
			if otelMetrics, err = telemetry.InitMetrics(); err != nil {
				logger.Warn().Err(err).Msg("Failed to initialize OpenTelemetry instruments")
				otelMetrics = nil
			}
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	database, err := db.Connect(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create schema")
	}

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL == "" {
		logger.Info().Msg("RABBITMQ_URL not set, patient events will not be published")
	} else if p, err := messaging.NewPublisher(cfg.RabbitMQURL); err != nil {
		logger.Warn().Err(err).Msg("RabbitMQ unavailable, patient events will not be published")
	} else {
		publisher = p
		defer p.Close()
	}

	pipeline := metrics.NewPipeline()
	providerRetry := func(operation, providerName string) retry.Policy {
		return retry.Policy{
			Operation:   operation,
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			OnAttempt:   pipeline.ProviderAttempt(providerName),
		}
	}

	stt, err := transcription.NewClient(transcription.Config{
		APIKey:  cfg.ElevenLabs.APIKey,
		URL:     cfg.ElevenLabs.URL,
		ModelID: cfg.ElevenLabs.ModelID,
		Timeout: cfg.ElevenLabs.Timeout,
		Retry:   providerRetry("elevenlabs_transcription", transcription.ProviderName),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create speech-to-text client")
	}
	extractor, err := extraction.NewGeminiExtractor(extraction.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
		Retry:   providerRetry("ai_parser", extraction.ProviderName),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Gemini extractor")
	}

	upsertRecorders := []patient.MetricsRecorder{pipeline}
	intakeRecorders := []intake.MetricsRecorder{pipeline}
	if otelMetrics != nil {
		upsertRecorders = append(upsertRecorders, otelMetrics)
		intakeRecorders = append(intakeRecorders, otelMetrics)
	}

	patientService := patient.NewService(patient.NewRepository(database), publisher, upsertRecorders...)
	intakeService := intake.NewService(stt, extractor, patientService, intakeRecorders...)

	var verifier *auth.Verifier
	authCfg := auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer}
	if authCfg.Enabled() {
		verifier = auth.NewVerifier(authCfg)
		logger.Info().Msg("Bearer token authentication enabled")
	}

	router := httpserver.SetupRouter(httpserver.Dependencies{
		ServiceName: cfg.ServiceName,
		Logger:      logger,
		CORS:        cfg.CORS,
		Patients:    patient.NewHandler(patientService),
		Intake:      intake.NewHandler(intakeService, cfg.MaxUploadBytes),
		Metrics:     pipeline,
		Telemetry:   otelMetrics,
		Verifier:    verifier,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("app", cfg.AppTitle).
			Msg("Server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-sigChan
	logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Shutdown complete")
}
