// Package intake runs a recorded phone call through transcription, field
// extraction, normalization and the patient upsert.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/extraction"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/transcription"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/voice-intake-service/intake")

type Transcriber interface {
	Transcribe(ctx context.Context, audio transcription.Audio) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, transcript string) (extraction.Fields, error)
}

type PatientUpserter interface {
	UpsertPatient(ctx context.Context, req patient.CreatePatientRequest, source string) (*patient.Patient, error)
}

// MetricsRecorder counts finished intakes.
type MetricsRecorder interface {
	RecordIntake(ctx context.Context, stage, result string)
}

// StageObserver is implemented by recorders that also track stage latency.
type StageObserver interface {
	ObserveStage(stage string, d time.Duration)
}

type ServiceInterface interface {
	Process(ctx context.Context, audio transcription.Audio) (*patient.Patient, error)
}

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	transcriber Transcriber
	extractor   Extractor
	patients    PatientUpserter
	recorders   []MetricsRecorder
}

func NewService(transcriber Transcriber, extractor Extractor, patients PatientUpserter, recorders ...MetricsRecorder) *Service {
	return &Service{
		transcriber: transcriber,
		extractor:   extractor,
		patients:    patients,
		recorders:   recorders,
	}
}

// stageEvents maps a stage to the prefix of its log events.
var stageEvents = map[string]string{
	StageTranscribing: "voice_input.transcription",
	StageExtracting:   "voice_input.parsing",
	StageNormalizing:  "voice_input.validation",
	StagePersisting:   "voice_input.persistence",
}

// Process runs every stage in order and stops at the first failure. Errors are
// always *StageError.
func (s *Service) Process(ctx context.Context, audio transcription.Audio) (*patient.Patient, error) {
	var (
		transcript string
		fields     extraction.Fields
		saved      *patient.Patient
	)

	err := s.run(ctx, StageTranscribing, func(ctx context.Context) error {
		var err error
		transcript, err = s.transcriber.Transcribe(ctx, audio)
		return err
	})
	if err == nil {
		err = s.run(ctx, StageExtracting, func(ctx context.Context) error {
			var err error
			fields, err = s.extractor.Extract(ctx, transcript)
			return err
		})
	}
	if err == nil {
		err = s.run(ctx, StageNormalizing, func(ctx context.Context) error {
			fields = normalize.Fields(fields)
			if missing := normalize.Missing(fields); len(missing) > 0 {
				return &IncompleteDataError{Missing: missing}
			}
			return nil
		})
	}
	if err == nil {
		err = s.run(ctx, StagePersisting, func(ctx context.Context) error {
			var err error
			saved, err = s.patients.UpsertPatient(ctx, patient.CreatePatientRequest{
				FirstName:   *fields.FirstName,
				LastName:    *fields.LastName,
				PhoneNumber: *fields.PhoneNumber,
				Address:     *fields.Address,
			}, messaging.SourceVoice)
			return err
		})
	}

	stage, result := outcome(err)
	for _, r := range s.recorders {
		r.RecordIntake(ctx, stage, result)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) run(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)
	event := stageEvents[stage]

	ctx, span := tracer.Start(ctx, "intake."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("intake.stage", stage)),
	)
	defer span.End()

	logger.Info().Str("event", event+".start").Msg("Stage started")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	for _, r := range s.recorders {
		if o, ok := r.(StageObserver); ok {
			o.ObserveStage(stage, elapsed)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logFailure(ctx, stage, err)
		return &StageError{Stage: stage, Err: err}
	}

	span.SetStatus(codes.Ok, "")
	logger.Info().
		Str("event", event+".success").
		Dur("duration", elapsed).
		Msg("Stage completed")
	return nil
}

func (s *Service) logFailure(ctx context.Context, stage string, err error) {
	logger := zerolog.Ctx(ctx)

	var incomplete *IncompleteDataError
	if errors.As(err, &incomplete) {
		logger.Warn().
			Str("event", "voice_input.validation.incomplete").
			Strs("missing_fields", incomplete.Missing).
			Msg("Extracted patient data is incomplete")
		return
	}
	if pe, ok := provider.As(err); ok {
		logger.Error().
			Str("event", "voice_input.provider_error").
			Str("stage", stage).
			Str("detail", pe.Message).
			Fields(pe.LogFields()).
			Msg("Provider call failed")
		return
	}
	logger.Error().Err(err).Str("stage", stage).Msg("Voice intake stage failed")
}

func outcome(err error) (stage, result string) {
	if err == nil {
		return StagePersisting, ResultSuccess
	}
	stage = "unknown"
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	var incomplete *IncompleteDataError
	if errors.As(err, &incomplete) {
		return stage, ResultIncomplete
	}
	if _, ok := provider.As(err); ok {
		return stage, ResultProviderError
	}
	return stage, ResultError
}
