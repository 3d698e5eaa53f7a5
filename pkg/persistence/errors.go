// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrEnrollmentNotFound indicates no enrollment matched the lookup.
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrEnrollmentExists indicates an active or paused enrollment already
	// exists for the (campaign, contact) pair.
	ErrEnrollmentExists = errors.New("active enrollment already exists")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrContactNotFound indicates a contact was not found by the given identifier.
	ErrContactNotFound = errors.New("contact not found")

	// ErrDealNotFound indicates a deal was not found by the given identifier.
	ErrDealNotFound = errors.New("deal not found")
)

// CampaignError wraps campaign-related errors with additional context.
type CampaignError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save")
	CampaignID string
	Err        error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for campaign errors.
func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{Op: op, CampaignID: campaignID, Err: err}
}

// EnrollmentError wraps enrollment-related errors with additional context.
type EnrollmentError struct {
	Op           string
	EnrollmentID string
	Err          error
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("%s operation failed for enrollment %s: %v", e.Op, e.EnrollmentID, e.Err)
}

func (e *EnrollmentError) Unwrap() error {
	return e.Err
}

func (e *EnrollmentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsEnrollmentExists checks if an error indicates a duplicate active enrollment.
func IsEnrollmentExists(err error) bool {
	return errors.Is(err, ErrEnrollmentExists)
}

// IsNotFound checks if an error is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrDealNotFound)
}
