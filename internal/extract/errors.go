package extract

import (
	"fmt"

	"github.com/jonathan/invoice-reconciler/internal/types"
)

// ErrorBundle is an extraction failure. It is both an error and a Bundle so callers
// can surface it unchanged.
type ErrorBundle struct {
	Message string
	File    string
	Source  string
	Cause   error
}

func newErrorBundle(file, source string, cause error) *ErrorBundle {
	return &ErrorBundle{Message: cause.Error(), File: file, Source: source, Cause: cause}
}

func (e *ErrorBundle) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s extraction failed for %s: %s", e.Source, e.File, e.Message)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.File, e.Message)
}

func (e *ErrorBundle) Unwrap() error {
	return e.Cause
}

// ToMap renders {error: true, message, file_name, document_type}
func (e *ErrorBundle) ToMap() map[string]any {
	return map[string]any{
		"error":         true,
		"message":       e.Message,
		"file_name":     e.File,
		"document_type": e.Source,
	}
}

// FileName implements Bundle
func (e *ErrorBundle) FileName() string { return e.File }

// DocumentType implements Bundle
func (e *ErrorBundle) DocumentType() string { return e.Source }

// FinancialInfo implements Bundle; failures carry no figures
func (e *ErrorBundle) FinancialInfo() *types.FinancialInfo { return nil }
