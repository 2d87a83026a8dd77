package models

import (
	"errors"
	"fmt"
)

// ErrMutationInFlight is returned when a second mutating call targets an
// order that already has one in flight.
var ErrMutationInFlight = errors.New("another operation is already in flight for this order")

// GenericRemoteMessage is shown when the remote API gives no message of
// its own.
const GenericRemoteMessage = "So'rovni bajarishda xatolik yuz berdi"

// ValidationError is raised before any network call is made. The field
// names the offending input where one exists.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RemoteError carries a failure reported by the remote commerce API.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote api error: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError, falling back to the generic
// message when the API supplied none.
func NewRemoteError(statusCode int, message string, err error) *RemoteError {
	if message == "" {
		message = GenericRemoteMessage
	}
	return &RemoteError{StatusCode: statusCode, Message: message, Err: err}
}
