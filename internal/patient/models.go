package patient

// Patient is a dental-office patient keyed by phone number.
type Patient struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	NewPatient  bool   `json:"new_patient"`
}

// CreatePatientRequest carries the four fields of a patient submission.
// PhoneNumber must already be normalized to digits before it reaches the store.
type CreatePatientRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Address     string `json:"address" validate:"required"`
}

// Upsert paths, as reported in metrics.
const (
	PathInsert     = "insert"
	PathUpdate     = "update"
	PathRaceUpdate = "race_update"
)
