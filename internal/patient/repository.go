package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure.
const uniqueViolation = "23505"

const patientColumns = `id, first_name, last_name, phone_number, address, new_patient`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.PhoneNumber,
		&p.Address,
		&p.NewPatient,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePatient inserts a first-time patient. A clash on the phone number is
// reported as ErrDuplicatePhone.
func (r *Repository) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	query := `
		INSERT INTO patients (first_name, last_name, phone_number, address, new_patient)
		VALUES ($1, $2, $3, $4, true)
		RETURNING ` + patientColumns

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query,
		req.FirstName,
		req.LastName,
		req.PhoneNumber,
		req.Address,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicatePhone
		}
		return nil, fmt.Errorf("failed to insert patient: %w", err)
	}
	return patient, nil
}

// ListPatients returns every patient, newest first.
func (r *Repository) ListPatients(ctx context.Context) ([]Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY id DESC`
	return r.queryPatients(ctx, query)
}

// ListPatientsPage returns one page of patients, newest first, and the total row count.
func (r *Repository) ListPatientsPage(ctx context.Context, limit, offset int) ([]Patient, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY id DESC LIMIT $1 OFFSET $2`
	patients, err := r.queryPatients(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *Repository) queryPatients(ctx context.Context, query string, args ...interface{}) ([]Patient, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *patient)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

func (r *Repository) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return patient, nil
}

func (r *Repository) GetPatientByPhone(ctx context.Context, phoneNumber string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE phone_number = $1`

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query, phoneNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient by phone: %w", err)
	}
	return patient, nil
}

// UpdatePatient overwrites names and address with the latest submission and
// marks the patient as returning. The phone number is the identity and is not changed.
func (r *Repository) UpdatePatient(ctx context.Context, id int64, req CreatePatientRequest) (*Patient, error) {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, address = $3, new_patient = false
		WHERE id = $4
		RETURNING ` + patientColumns

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query,
		req.FirstName,
		req.LastName,
		req.Address,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}
