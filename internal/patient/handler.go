package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		})
	})
	return validate
}

// validateCreateRequest trims the request in place, checks required fields and
// reduces the phone number to digits.
func validateCreateRequest(req *CreatePatientRequest) []FieldError {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Address = strings.TrimSpace(req.Address)

	var fieldErrors []FieldError
	if err := getValidator().Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return []FieldError{{Field: "", Message: err.Error()}}
		}
		for _, e := range validationErrors {
			fieldErrors = append(fieldErrors, FieldError{Field: e.Field(), Message: "is required"})
		}
	}

	if req.PhoneNumber != "" {
		digits, ok := normalize.Phone(req.PhoneNumber)
		if !ok {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   "phone_number",
				Message: "must contain at least 10 digits",
			})
		}
		req.PhoneNumber = digits
	}
	return fieldErrors
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	if fieldErrors := validateCreateRequest(&req); len(fieldErrors) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "validation_error",
			"message": "Invalid patient data",
			"fields":  fieldErrors,
		})
		return
	}

	patient, err := h.service.UpsertPatient(r.Context(), req, messaging.SourceManual)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to upsert patient")
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to save patient")
		return
	}

	respondJSON(w, http.StatusCreated, patient)
}

// ListPatients returns all patients, or one page of them when page or limit is given.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	var (
		patients []Patient
		err      error
	)
	if params, paged := pagination.FromRequest(r); paged {
		var meta pagination.Meta
		patients, meta, err = h.service.ListPatientsPage(r.Context(), params)
		if err == nil {
			meta.WriteHeaders(w)
		}
	} else {
		patients, err = h.service.ListPatients(r.Context())
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list patients")
		respondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list patients")
		return
	}
	if patients == nil {
		patients = []Patient{}
	}

	respondJSON(w, http.StatusOK, patients)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID must be an integer")
		return
	}

	patient, err := h.service.GetPatient(r.Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("patient_id", id).Msg("Failed to get patient")
		respondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to get patient")
		return
	}

	respondJSON(w, http.StatusOK, patient)
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
