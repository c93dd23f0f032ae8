package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/db"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/logging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := logging.Setup(cfg.Log, cfg.ServiceName+"-seed", os.Stdout)

	if err := cfg.ValidateDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid database configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create schema")
	}

	svc := patient.NewService(patient.NewRepository(database), nil)
	seeded, err := patient.SeedDemoPatients(logger.WithContext(ctx), svc)
	if err != nil {
		logger.Fatal().Err(err).Msg("Seeding failed")
	}

	for _, p := range seeded {
		logger.Info().
			Int64("patient_id", p.ID).
			Str("phone_number", p.PhoneNumber).
			Bool("new_patient", p.NewPatient).
			Msg("Seeded patient")
	}
	logger.Info().Int("count", len(seeded)).Msg("Seed complete")
}
