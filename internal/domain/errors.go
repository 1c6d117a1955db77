package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across packages
var (
	// ErrNotFound is returned by stores when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an input with the same patient and variant number already exists
	ErrDuplicate = errors.New("duplicate input variant")
	// ErrMalformedPayload marks upstream data that does not have the expected shape
	ErrMalformedPayload = errors.New("malformed payload")
)

// ExternalServiceError reports a failed call to an upstream API (ClinVar, HGNC)
type ExternalServiceError struct {
	Service    string
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Service, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Operation, e.Err)
}

// Unwrap exposes the underlying cause
func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err as a failure of service/operation
func NewExternalServiceError(service, operation string, statusCode int, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:    service,
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
	}
}

// IsExternalServiceError reports whether err is or wraps an ExternalServiceError
func IsExternalServiceError(err error) bool {
	var target *ExternalServiceError
	return errors.As(err, &target)
}

// APIError represents a standardized error response body
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrExternalAPI    = "EXTERNAL_API_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
	ErrHGVSParsing    = "HGVS_PARSING_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
