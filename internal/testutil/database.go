package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/db"
)

const defaultTestDatabaseURL = "host=localhost port=5432 user=postgres password=postgres dbname=dental_intake_test sslmode=disable"

// SetupTestDB connects to the test database and makes sure the schema exists.
// Set TEST_DATABASE_URL to point it somewhere other than the local default.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = defaultTestDatabaseURL
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return conn
}

// CleanupTestDB removes all patients and resets the id sequence
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec("TRUNCATE TABLE patients RESTART IDENTITY"); err != nil {
		t.Logf("Warning: Failed to clean up patients: %v", err)
	}
}

// CountPatientsByPhone returns how many rows carry the given phone number.
func CountPatientsByPhone(t *testing.T, conn *sql.DB, phone string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM patients WHERE phone_number = $1", phone).Scan(&n); err != nil {
		t.Fatalf("Failed to count patients: %v", err)
	}
	return n
}
