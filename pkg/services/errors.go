// Package services provides the campaign catalog service layer.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400 responses, conflicts
// to 409.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrCampaignNil          = errors.New("campaign cannot be nil")
	ErrCampaignNameRequired = errors.New("campaign name is required")
	ErrStepsRequired        = errors.New("campaign must have at least one step")
	ErrTriggersRequired     = errors.New("campaign must have at least one active trigger")
	ErrInvalidSteps         = errors.New("invalid campaign steps")

	ErrCannotModifyArchived = errors.New("cannot modify archived campaign")
	ErrNotActivatable       = errors.New("only draft or paused campaigns can be activated")
	ErrNotPausable          = errors.New("only active campaigns can be paused")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrCampaignNil) ||
		errors.Is(err, ErrCampaignNameRequired) ||
		errors.Is(err, ErrStepsRequired) ||
		errors.Is(err, ErrTriggersRequired) ||
		errors.Is(err, ErrInvalidSteps)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyArchived) ||
		errors.Is(err, ErrNotActivatable) ||
		errors.Is(err, ErrNotPausable)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
