package intake

import (
	"fmt"
	"strings"
)

// Pipeline stages, in execution order.
const (
	StageTranscribing = "transcribing"
	StageExtracting   = "extracting"
	StageNormalizing  = "normalizing"
	StagePersisting   = "persisting"
)

// Outcome labels recorded for a finished intake.
const (
	ResultSuccess       = "success"
	ResultProviderError = "provider_error"
	ResultIncomplete    = "incomplete"
	ResultError         = "error"
)

// StageError tags a pipeline failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IncompleteDataError is returned when required patient fields are still
// missing after normalization.
type IncompleteDataError struct {
	Missing []string
}

func (e *IncompleteDataError) Error() string {
	return "incomplete patient data: missing " + strings.Join(e.Missing, ", ")
}
