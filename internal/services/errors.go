package services

import (
	"errors"
	"fmt"

	"github.com/KHABI-TEQ/console-admin/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is soft-deleted.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials is returned on a failed admin login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// IllegalTransitionError reports an inspection lifecycle move the transition
// table does not allow. The server rejects these regardless of what the
// caller sends; client-side guards are UX only.
type IllegalTransitionError struct {
	From models.InspectionStatus
	To   models.InspectionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal inspection transition %q -> %q", e.From, e.To)
}

// IsIllegalTransition reports whether err is an IllegalTransitionError.
func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}

// ValidationError reports request input the service refused: an unknown
// status value or a transition missing its required fields. Handlers map
// these to 400 responses.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err as a ValidationError.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
