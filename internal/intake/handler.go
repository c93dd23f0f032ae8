package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/transcription"
)

// UploadField is the multipart form field carrying the recorded call.
const UploadField = "file"

type Handler struct {
	service        ServiceInterface
	maxUploadBytes int64
}

func NewHandler(service ServiceInterface, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// VoiceInput accepts an audio upload and turns it into a stored patient record.
func (h *Handler) VoiceInput(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Audio file exceeds the upload limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "Missing audio file in form field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Failed to read audio file")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "Empty audio file received")
		return
	}

	audio := transcription.Audio{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	logger.Info().
		Str("event", "voice_input.received").
		Str("filename", audio.Filename).
		Str("content_type", audio.ContentType).
		Int("bytes", len(data)).
		Msg("Voice input received")

	// The pipeline finishes even if the caller hangs up.
	saved, err := h.service.Process(context.WithoutCancel(r.Context()), audio)
	if err != nil {
		h.respondProcessError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (h *Handler) respondProcessError(w http.ResponseWriter, r *http.Request, err error) {
	var incomplete *IncompleteDataError
	if errors.As(err, &incomplete) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":          "incomplete_patient_data",
			"missing_fields": incomplete.Missing,
		})
		return
	}

	if errors.Is(err, transcription.ErrEmptyAudio) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Empty audio file received")
		return
	}

	if pe, ok := provider.As(err); ok {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":    "provider_error",
			"provider": pe.Provider,
			"message":  pe.Message,
		})
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Msg("Voice intake failed")
	respondError(w, http.StatusInternalServerError, "internal_error", "Internal processing error")
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
