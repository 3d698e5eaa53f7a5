package models

import "time"

// ExecutionStatus represents the state machine of a step execution:
// pending -> running -> completed | failed, or skipped when the enrollment
// left the campaign before the execution ran.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusSkipped   ExecutionStatus = "skipped"
)

// CampaignStepExecution is one scheduled or attempted run of one step for
// one enrollment. It is the pollable unit of work: the engine claims
// pending executions whose scheduled_at has passed.
type CampaignStepExecution struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	CampaignID   string          `json:"campaign_id"`
	EnrollmentID string          `json:"enrollment_id"`
	StepID       string          `json:"step_id"`
	Status       ExecutionStatus `json:"status"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result       map[string]any `json:"result,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`

	// Channel engagement, populated by external delivery callbacks.
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClickedAt *time.Time `json:"clicked_at,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`
}

// Due reports whether the execution is ready to be claimed at the given
// instant.
func (x *CampaignStepExecution) Due(now time.Time) bool {
	return x.Status == ExecutionStatusPending && !x.ScheduledAt.After(now)
}
