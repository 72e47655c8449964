package pipeline

import "fmt"

// ModelUnavailableError is returned when the model call for a stage fails after
// the client's own retries. It is fatal for the current document.
type ModelUnavailableError struct {
	Stage string
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model unavailable during %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("model unavailable during %s", e.Stage)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}

// ValidationError represents invalid pipeline input
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
