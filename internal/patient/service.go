package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/pagination"
)

// MetricsRecorder receives the path taken by each upsert.
type MetricsRecorder interface {
	RecordUpsert(ctx context.Context, path string)
}

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	recorders []MetricsRecorder
}

// NewService creates the patient service. publisher may be nil.
func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, recorders ...MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		recorders: recorders,
	}
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) ListPatientsPage(ctx context.Context, params pagination.Params) ([]Patient, pagination.Meta, error) {
	params.Validate()
	patients, total, err := s.repo.ListPatientsPage(ctx, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, params.Meta(total), nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	patient, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) GetPatientByPhone(ctx context.Context, phoneNumber string) (*Patient, error) {
	patient, err := s.repo.GetPatientByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by phone: %w", err)
	}
	return patient, nil
}

// UpsertPatient stores the submission under its phone number. A first-time phone
// creates a new patient; a known phone overwrites names and address and clears the
// new-patient flag. An insert that loses a race against a concurrent insert of the
// same phone falls back to the update path.
func (s *Service) UpsertPatient(ctx context.Context, req CreatePatientRequest, source string) (*Patient, error) {
	logger := zerolog.Ctx(ctx)

	existing, err := s.repo.GetPatientByPhone(ctx, req.PhoneNumber)
	switch {
	case err == nil:
		logger.Info().
			Str("event", "voice_input.persistence.returning_patient").
			Int64("patient_id", existing.ID).
			Msg("voice_input.persistence.returning_patient")
		return s.update(ctx, existing.ID, req, PathUpdate, source)
	case !errors.Is(err, ErrPatientNotFound):
		return nil, fmt.Errorf("failed to look up patient by phone: %w", err)
	}

	created, err := s.repo.CreatePatient(ctx, req)
	if errors.Is(err, ErrDuplicatePhone) {
		logger.Warn().
			Str("event", "voice_input.persistence.race_detected").
			Msg("Concurrent insert for the same phone number, retrying as update")

		existing, err = s.repo.GetPatientByPhone(ctx, req.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read patient after duplicate insert: %w", err)
		}
		return s.update(ctx, existing.ID, req, PathRaceUpdate, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	logger.Info().
		Str("event", "voice_input.persistence.new_patient").
		Int64("patient_id", created.ID).
		Msg("voice_input.persistence.new_patient")
	s.finish(ctx, created, PathInsert, source)
	return created, nil
}

func (s *Service) update(ctx context.Context, id int64, req CreatePatientRequest, path, source string) (*Patient, error) {
	updated, err := s.repo.UpdatePatient(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	s.finish(ctx, updated, path, source)
	return updated, nil
}

func (s *Service) finish(ctx context.Context, p *Patient, path, source string) {
	for _, r := range s.recorders {
		r.RecordUpsert(ctx, path)
	}

	routingKey, err := messaging.PublishIntake(ctx, s.publisher, p.ID, p.PhoneNumber, p.NewPatient, source)
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("routing_key", routingKey).
			Int64("patient_id", p.ID).
			Msg("Failed to publish patient event")
	}
}
