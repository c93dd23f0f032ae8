package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestJWTSecret and TestJWTIssuer match the auth config used by e2e servers.
const (
	TestJWTSecret = "test-front-desk-secret"
	TestJWTIssuer = "https://auth.test/dental"
)

// GenerateTestJWT signs an HS256 token for userID with the given roles.
func GenerateTestJWT(t *testing.T, secret, userID string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   userID,
		"iss":   TestJWTIssuer,
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"roles": interfaceSlice(roles),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateFrontDeskToken creates a receptionist token signed with TestJWTSecret
func GenerateFrontDeskToken(t *testing.T) string {
	t.Helper()
	return GenerateTestJWT(t, TestJWTSecret, "reception-123", []string{"FRONT_DESK"})
}

// GenerateExpiredToken creates a token whose exp is already in the past
func GenerateExpiredToken(t *testing.T) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "reception-123",
		"iss": TestJWTIssuer,
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
