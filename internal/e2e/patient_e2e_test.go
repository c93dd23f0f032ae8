//go:build integration

package e2e

import (
	"net/http"
	"testing"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/testutil"
)

var wavBytes = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

// TestE2E_CreatePatient_ThenReturn covers the manual creation path end to end
func TestE2E_CreatePatient_ThenReturn(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	client := ts.FrontDeskClient(t)

	body := map[string]interface{}{
		"first_name":   "Alice",
		"last_name":    "Nguyen",
		"phone_number": "(514) 555-0100",
		"address":      "123 Maple Avenue, Montreal, QC",
	}
	resp := client.POST(t, "/patients", body)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var first patient.Patient
	testutil.DecodeJSON(t, resp, &first)
	if !first.NewPatient || first.PhoneNumber != "5145550100" {
		t.Errorf("Unexpected first patient: %+v", first)
	}

	body["address"] = "456 Oak Street, Laval, QC"
	resp = client.POST(t, "/patients", body)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var second patient.Patient
	testutil.DecodeJSON(t, resp, &second)
	if second.ID != first.ID {
		t.Errorf("Expected same id %d, got %d", first.ID, second.ID)
	}
	if second.NewPatient || second.Address != "456 Oak Street, Laval, QC" {
		t.Errorf("Expected updated returning patient, got %+v", second)
	}

	ts.MockPublisher.AssertEventCount(t, messaging.EventPatientRegistered, 1)
	ts.MockPublisher.AssertEventCount(t, messaging.EventPatientReturned, 1)
	if ev := ts.MockPublisher.LastEventByKey(messaging.EventPatientReturned).Intake(t); ev.Data.Source != messaging.SourceManual {
		t.Errorf("Expected manual source, got %s", ev.Data.Source)
	}
}

func TestE2E_ListAndGetPatients(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	client := ts.FrontDeskClient(t)

	for _, req := range patient.DemoPatients {
		resp := client.POST(t, "/patients", req)
		testutil.AssertStatusCode(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp := client.GET(t, "/patients")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var patients []patient.Patient
	testutil.DecodeJSON(t, resp, &patients)
	if len(patients) != 3 {
		t.Fatalf("Expected 3 patients, got %d", len(patients))
	}
	if patients[0].FirstName != "Sofia" {
		t.Errorf("Expected newest patient first, got %s", patients[0].FirstName)
	}

	resp = client.GET(t, "/patients/999999")
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestE2E_VoiceInput_Success(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	ts.Providers.Set(
		"Hi, my name is Alice Nguyen, my number is 514 555 0100 and I live at 123 Maple Avenue.",
		"```json\n{\"first_name\":\"Alice\",\"last_name\":\"Nguyen\",\"phone_number\":\"514-555-0100\",\"address\":\"123 Maple Avenue, Montreal, QC\"}\n```",
	)
	client := ts.FrontDeskClient(t)

	resp := client.POSTFile(t, "/voice-input", "file", "call.wav", wavBytes)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created patient.Patient
	testutil.DecodeJSON(t, resp, &created)
	if created.PhoneNumber != "5145550100" || !created.NewPatient {
		t.Errorf("Unexpected patient: %+v", created)
	}

	ev := ts.MockPublisher.LastEventByKey(messaging.EventPatientRegistered)
	if ev == nil {
		t.Fatal("Expected patient.registered event")
	}
	if data := ev.Intake(t).Data; data.Source != messaging.SourceVoice || data.PatientID != created.ID {
		t.Errorf("Unexpected event data: %+v", data)
	}
}

func TestE2E_VoiceInput_IncompleteData(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	ts.Providers.Set(
		"Hi, this is Alice, I would like an appointment.",
		`{"first_name":"Alice","last_name":null,"phone_number":"555","address":""}`,
	)
	client := ts.FrontDeskClient(t)

	resp := client.POSTFile(t, "/voice-input", "file", "call.wav", wavBytes)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", resp.StatusCode, testutil.ReadBody(t, resp))
	}

	var body struct {
		Error         string   `json:"error"`
		MissingFields []string `json:"missing_fields"`
	}
	testutil.DecodeJSON(t, resp, &body)
	if body.Error != "incomplete_patient_data" {
		t.Errorf("Expected incomplete_patient_data, got %s", body.Error)
	}
	want := []string{"last_name", "phone_number", "address"}
	if len(body.MissingFields) != len(want) {
		t.Fatalf("Expected missing %v, got %v", want, body.MissingFields)
	}
	for i := range want {
		if body.MissingFields[i] != want[i] {
			t.Errorf("Expected missing %v, got %v", want, body.MissingFields)
		}
	}

	listResp := client.GET(t, "/patients")
	var patients []patient.Patient
	testutil.DecodeJSON(t, listResp, &patients)
	if len(patients) != 0 {
		t.Errorf("Expected nothing persisted, got %d patients", len(patients))
	}
}

func TestE2E_VoiceInput_TranscriptionOutage(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	ts.Providers.FailSTT(http.StatusServiceUnavailable)
	client := ts.FrontDeskClient(t)

	resp := client.POSTFile(t, "/voice-input", "file", "call.wav", wavBytes)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d: %s", resp.StatusCode, testutil.ReadBody(t, resp))
	}

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	if body["error"] != "provider_error" || body["provider"] != "elevenlabs" {
		t.Errorf("Unexpected body: %v", body)
	}

	stt, gemini := ts.Providers.Calls()
	if stt != 3 {
		t.Errorf("Expected 3 STT attempts, got %d", stt)
	}
	if gemini != 0 {
		t.Errorf("Expected extraction to be skipped, got %d calls", gemini)
	}

	listResp := client.GET(t, "/patients")
	var patients []patient.Patient
	testutil.DecodeJSON(t, listResp, &patients)
	if len(patients) != 0 {
		t.Errorf("Expected no rows after provider failure, got %d", len(patients))
	}
}

func TestE2E_AuthRequired(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	resp := ts.NewClient("").GET(t, "/health")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.NewClient("").GET(t, "/patients")
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = ts.NewClient(testutil.GenerateExpiredToken(t)).GET(t, "/patients")
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}
