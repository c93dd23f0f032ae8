//go:build integration

package e2e

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/auth"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/extraction"
	httpserver "github.com/WailSalutem-Health-Care/voice-intake-service/internal/http"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/intake"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/metrics"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/patient"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/retry"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/testutil"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/transcription"
)

// FakeProviders stands in for ElevenLabs and Gemini. Tests set the canned
// replies; the counters record how often each was called.
type FakeProviders struct {
	mu sync.Mutex

	STTStatus  int
	Transcript string
	GeminiText string

	STTCalls    int
	GeminiCalls int

	stt    *httptest.Server
	gemini *httptest.Server
}

func newFakeProviders() *FakeProviders {
	f := &FakeProviders{STTStatus: http.StatusOK}

	f.stt = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.STTCalls++
		status, transcript := f.STTStatus, f.Transcript
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"detail":"service unavailable"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": transcript})
	}))

	f.gemini = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.GeminiCalls++
		text := f.GeminiText
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				}},
			},
		})
	}))

	return f
}

// Set replaces the canned provider replies.
func (f *FakeProviders) Set(transcript, geminiText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.STTStatus = http.StatusOK
	f.Transcript = transcript
	f.GeminiText = geminiText
}

// FailSTT makes every transcription call return status.
func (f *FakeProviders) FailSTT(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.STTStatus = status
}

func (f *FakeProviders) Calls() (stt, gemini int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.STTCalls, f.GeminiCalls
}

func (f *FakeProviders) close() {
	f.stt.Close()
	f.gemini.Close()
}

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Providers     *FakeProviders
}

// SetupE2ETest wires the real router, patient store and provider clients
// against a real PostgreSQL and fake provider servers. Auth is enabled with
// testutil.TestJWTSecret.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, db)

	mockPublisher := testutil.NewMockPublisher()
	providers := newFakeProviders()
	pipeline := metrics.NewPipeline()

	fastRetry := func(op, provider string) retry.Policy {
		return retry.Policy{
			Operation:   op,
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			OnAttempt:   pipeline.ProviderAttempt(provider),
		}
	}

	stt, err := transcription.NewClient(transcription.Config{
		APIKey: "test-elevenlabs-key",
		URL:    providers.stt.URL,
		Retry:  fastRetry("elevenlabs_transcription", transcription.ProviderName),
	})
	if err != nil {
		t.Fatalf("Failed to create STT client: %v", err)
	}
	extractor, err := extraction.NewGeminiExtractor(extraction.Config{
		APIKey:  "test-gemini-key",
		BaseURL: providers.gemini.URL,
		Retry:   fastRetry("ai_parser", extraction.ProviderName),
	})
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}

	patientService := patient.NewService(patient.NewRepository(db), mockPublisher, pipeline)
	intakeService := intake.NewService(stt, extractor, patientService, pipeline)

	router := httpserver.SetupRouter(httpserver.Dependencies{
		Logger:   zerolog.New(io.Discard),
		CORS:     config.Default().CORS,
		Patients: patient.NewHandler(patientService),
		Intake:   intake.NewHandler(intakeService, config.Default().MaxUploadBytes),
		Metrics:  pipeline,
		Verifier: auth.NewVerifier(auth.Config{Secret: testutil.TestJWTSecret, Issuer: testutil.TestJWTIssuer}),
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		MockPublisher: mockPublisher,
		Providers:     providers,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	ts.Providers.close()

	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}

// FrontDeskClient returns a client carrying a valid front-desk token.
func (ts *TestServer) FrontDeskClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return ts.NewClient(testutil.GenerateFrontDeskToken(t))
}
