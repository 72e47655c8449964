package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		reqErr      *ErrValidation
		optsErr     *pipeline.ValidationError
		tooLarge    *http.MaxBytesError
		extractErr  *extract.ErrorBundle
		unavailable *pipeline.ModelUnavailableError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &reqErr), errors.As(err, &optsErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Category {
			case llm.CategoryTimeout:
				return http.StatusGatewayTimeout
			case llm.CategoryRateLimit, llm.CategoryQuota:
				return http.StatusServiceUnavailable
			}
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
