package provider

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxPayloadChars bounds the raw provider payload kept for diagnostics.
const MaxPayloadChars = 1000

// Error is returned when an upstream speech-to-text or language-model call fails.
// Payload is for server-side logs only and must never be sent to HTTP clients.
type Error struct {
	Provider   string
	Message    string
	StatusCode int
	Payload    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// LogFields returns the structured fields attached to retry and failure logs.
func (e *Error) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"provider": e.Provider,
	}
	if e.StatusCode != 0 {
		fields["status_code"] = e.StatusCode
	}
	if e.Payload != "" {
		fields["payload"] = e.Payload
	}
	if e.Err != nil {
		fields["cause"] = e.Err.Error()
	}
	return fields
}

// As reports whether err is, or wraps, a provider error.
func As(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// Truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
