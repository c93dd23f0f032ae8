package patient

import "context"

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	ListPatientsPage(ctx context.Context, limit, offset int) ([]Patient, int, error)
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	GetPatientByPhone(ctx context.Context, phoneNumber string) (*Patient, error)
	UpdatePatient(ctx context.Context, id int64, req CreatePatientRequest) (*Patient, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
