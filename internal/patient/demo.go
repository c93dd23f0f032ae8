package patient

import (
	"context"
	"fmt"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
)

// DemoPatients are representative records with normalized phone numbers.
var DemoPatients = []CreatePatientRequest{
	{FirstName: "Alice", LastName: "Nguyen", PhoneNumber: "5145550100", Address: "123 Maple Avenue, Montreal, QC"},
	{FirstName: "Benjamin", LastName: "Clark", PhoneNumber: "4385550101", Address: "77 Crescent Street, Montreal, QC"},
	{FirstName: "Sofia", LastName: "Martinez", PhoneNumber: "4385550102", Address: "902 Sherbrooke Ouest, Montreal, QC"},
}

// SeedDemoPatients upserts the given records, or DemoPatients when none are given,
// and returns them in insertion order. Seeding twice leaves one row per phone.
func SeedDemoPatients(ctx context.Context, svc ServiceInterface, records ...CreatePatientRequest) ([]Patient, error) {
	if len(records) == 0 {
		records = DemoPatients
	}

	seeded := make([]Patient, 0, len(records))
	for _, req := range records {
		p, err := svc.UpsertPatient(ctx, req, messaging.SourceManual)
		if err != nil {
			return nil, fmt.Errorf("failed to seed patient %s: %w", req.PhoneNumber, err)
		}
		seeded = append(seeded, *p)
	}
	return seeded, nil
}
