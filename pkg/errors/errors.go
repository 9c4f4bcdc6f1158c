package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidFileFormat  = errors.New("invalid file format")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrMalformedChangeSet = errors.New("malformed change set")
	ErrExternalAPITimeout = errors.New("external API timeout")
	ErrExternalAPIError   = errors.New("external API error")
	ErrAuthentication     = errors.New("authentication failed")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

// UpstreamError carries the status and message returned by the directory service
// so handlers can surface them unchanged.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

func (e UpstreamError) Unwrap() error {
	return ErrExternalAPIError
}

func NewValidationError(field string, value interface{}, message string) error {
	return ValidationError{Field: field, Value: value, Message: message}
}
