package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/pagination"
)

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	ListPatientsPage(ctx context.Context, params pagination.Params) ([]Patient, pagination.Meta, error)
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	GetPatientByPhone(ctx context.Context, phoneNumber string) (*Patient, error)
	UpsertPatient(ctx context.Context, req CreatePatientRequest, source string) (*Patient, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
