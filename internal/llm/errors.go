package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Error categories assigned by CategorizeError
const (
	CategoryBadRequest    = "bad_request"
	CategoryUnauthorized  = "unauthorized"
	CategoryForbidden     = "forbidden"
	CategoryNotFound      = "not_found"
	CategoryTooLarge      = "payload_too_large"
	CategoryRateLimit     = "rate_limit"
	CategoryServerError   = "server_error"
	CategoryTimeout       = "timeout"
	CategoryCanceled      = "canceled"
	CategoryQuota         = "quota_exceeded"
	CategoryNetwork       = "network_error"
	CategoryEmptyResponse = "empty_response"
	CategoryUnknown       = "unknown"
)

// APIError is a categorized failure from the model provider
type APIError struct {
	Category   string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model call failed [%s, status %d]: %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model call failed [%s]: %s", e.Category, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// CategorizeError wraps err in an APIError that records whether a retry may help.
// Errors that are already categorized are returned as-is.
func CategorizeError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	out := &APIError{Category: CategoryUnknown, Message: err.Error(), Cause: err}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		out.StatusCode = gErr.Code
		switch {
		case gErr.Code == http.StatusBadRequest:
			out.Category = CategoryBadRequest
		case gErr.Code == http.StatusUnauthorized:
			out.Category = CategoryUnauthorized
		case gErr.Code == http.StatusForbidden:
			out.Category = CategoryForbidden
		case gErr.Code == http.StatusNotFound:
			out.Category = CategoryNotFound
		case gErr.Code == http.StatusRequestEntityTooLarge:
			out.Category = CategoryTooLarge
		case gErr.Code == http.StatusTooManyRequests:
			out.Category = CategoryRateLimit
			out.Retryable = true
		case gErr.Code >= 500:
			out.Category = CategoryServerError
			out.Retryable = true
		}
		return out
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Category = CategoryTimeout
		out.Retryable = true
		return out
	case errors.Is(err, context.Canceled):
		out.Category = CategoryCanceled
		return out
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		out.Category = CategoryQuota
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		out.Category = CategoryTimeout
		out.Retryable = true
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		out.Category = CategoryNetwork
		out.Retryable = true
	}
	return out
}

// IsRetryable reports whether err is a categorized error worth retrying
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}
