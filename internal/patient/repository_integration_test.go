//go:build integration

package patient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/testutil"
)

func returningAlice() CreatePatientRequest {
	return CreatePatientRequest{
		FirstName:   "Alice",
		LastName:    "Nguyen",
		PhoneNumber: "5145550100",
		Address:     "123 Maple Avenue, Montreal, QC",
	}
}

// TestRepositoryCreatePatient_Integration tests inserting a new patient
func TestRepositoryCreatePatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)
	testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)

	patient, err := repo.CreatePatient(context.Background(), returningAlice())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	if patient.ID == 0 {
		t.Error("Expected patient ID to be set")
	}
	if !patient.NewPatient {
		t.Error("Expected new patient flag on insert")
	}

	_, err = repo.CreatePatient(context.Background(), returningAlice())
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("Expected ErrDuplicatePhone on second insert, got %v", err)
	}
}

func TestRepositoryLookups_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)
	testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	patients, err := repo.ListPatients(ctx)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if patients == nil || len(patients) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", patients)
	}

	for _, req := range DemoPatients {
		if _, err := repo.CreatePatient(ctx, req); err != nil {
			t.Fatalf("CreatePatient failed: %v", err)
		}
	}

	patients, err = repo.ListPatients(ctx)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(patients) != 3 {
		t.Fatalf("Expected 3 patients, got %d", len(patients))
	}
	if patients[0].ID < patients[1].ID || patients[1].ID < patients[2].ID {
		t.Errorf("Expected newest first, got ids %d, %d, %d", patients[0].ID, patients[1].ID, patients[2].ID)
	}

	page, total, err := repo.ListPatientsPage(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListPatientsPage failed: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].ID != patients[2].ID {
		t.Errorf("Expected last page with the oldest patient, got %d rows of %d", len(page), total)
	}

	byPhone, err := repo.GetPatientByPhone(ctx, DemoPatients[1].PhoneNumber)
	if err != nil {
		t.Fatalf("GetPatientByPhone failed: %v", err)
	}
	byID, err := repo.GetPatient(ctx, byPhone.ID)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if byID.FirstName != DemoPatients[1].FirstName {
		t.Errorf("Expected %s, got %s", DemoPatients[1].FirstName, byID.FirstName)
	}

	if _, err := repo.GetPatient(ctx, 999999); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got %v", err)
	}
	if _, err := repo.GetPatientByPhone(ctx, "0000000000"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got %v", err)
	}
}

func TestRepositoryUpdatePatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)
	testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	created, err := repo.CreatePatient(ctx, returningAlice())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	req := returningAlice()
	req.Address = "456 Oak Street, Laval, QC"
	updated, err := repo.UpdatePatient(ctx, created.ID, req)
	if err != nil {
		t.Fatalf("UpdatePatient failed: %v", err)
	}
	if updated.ID != created.ID || updated.Address != req.Address || updated.NewPatient {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	if _, err := repo.UpdatePatient(ctx, 999999, req); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got %v", err)
	}
}

func TestServiceUpsertPatient_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)
	testutil.CleanupTestDB(t, db)

	publisher := testutil.NewMockPublisher()
	svc := NewService(NewRepository(db), publisher)
	ctx := context.Background()

	first, err := svc.UpsertPatient(ctx, returningAlice(), messaging.SourceVoice)
	if err != nil {
		t.Fatalf("UpsertPatient failed: %v", err)
	}

	req := returningAlice()
	req.Address = "456 Oak Street, Laval, QC"
	second, err := svc.UpsertPatient(ctx, req, messaging.SourceVoice)
	if err != nil {
		t.Fatalf("UpsertPatient failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected same id, got %d and %d", first.ID, second.ID)
	}
	if second.NewPatient || second.Address != req.Address {
		t.Errorf("Expected overwritten returning patient, got %+v", second)
	}
	if n := testutil.CountPatientsByPhone(t, db, req.PhoneNumber); n != 1 {
		t.Errorf("Expected one row for the phone, got %d", n)
	}

	publisher.AssertEventCount(t, messaging.EventPatientRegistered, 1)
	publisher.AssertEventCount(t, messaging.EventPatientReturned, 1)
	if ev := publisher.LastEventByKey(messaging.EventPatientReturned).Intake(t); ev.Data.PatientID != first.ID {
		t.Errorf("Expected event for patient %d, got %d", first.ID, ev.Data.PatientID)
	}
}

func TestServiceUpsertPatient_ConcurrentSamePhone_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)
	testutil.CleanupTestDB(t, db)

	svc := NewService(NewRepository(db), nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.UpsertPatient(context.Background(), returningAlice(), messaging.SourceVoice); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent upsert failed: %v", err)
	}
	if n := testutil.CountPatientsByPhone(t, db, returningAlice().PhoneNumber); n != 1 {
		t.Errorf("Expected concurrent upserts to converge to one row, got %d", n)
	}
}
