package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventPatientRegistered = "patient.registered"
	EventPatientReturned   = "patient.returned"
)

// Intake sources
const (
	SourceVoice  = "voice"
	SourceManual = "manual"
)

// ServiceName is stamped on every event.
const ServiceName = "voice-intake-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientIntakeEvent is published after a patient row is created or refreshed.
type PatientIntakeEvent struct {
	BaseEvent
	Data PatientIntakeData `json:"data"`
}

type PatientIntakeData struct {
	PatientID   int64  `json:"patient_id"`
	PhoneNumber string `json:"phone_number"`
	NewPatient  bool   `json:"new_patient"`
	Source      string `json:"source"` // "voice" or "manual"
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

// NewPatientIntakeEvent picks the routing key from the new-patient flag.
func NewPatientIntakeEvent(patientID int64, phoneNumber string, newPatient bool, source string) (string, PatientIntakeEvent) {
	routingKey := EventPatientReturned
	if newPatient {
		routingKey = EventPatientRegistered
	}
	return routingKey, PatientIntakeEvent{
		BaseEvent: NewBaseEvent(routingKey),
		Data: PatientIntakeData{
			PatientID:   patientID,
			PhoneNumber: phoneNumber,
			NewPatient:  newPatient,
			Source:      source,
		},
	}
}
