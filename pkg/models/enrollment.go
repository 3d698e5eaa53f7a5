package models

import "time"

// EnrollmentStatus represents the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusPaused    EnrollmentStatus = "paused"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusExited    EnrollmentStatus = "exited"
	EnrollmentStatusFailed    EnrollmentStatus = "failed"
)

// EnrollmentSource records how a contact entered the campaign.
type EnrollmentSource string

const (
	EnrollmentSourceAutomatic EnrollmentSource = "automatic"
	EnrollmentSourceManual    EnrollmentSource = "manual"
	EnrollmentSourceAPI       EnrollmentSource = "api"
	EnrollmentSourceBulk      EnrollmentSource = "bulk"
)

// Exit reasons recorded on enrollments that left the campaign early.
const (
	ExitReasonStageChanged = "stage_changed"
	ExitReasonStepExit     = "exit_step"
)

// CampaignEnrollment is one contact's live progress through one campaign.
// At most one enrollment per (campaign, contact) may be active or paused at
// a time; the store enforces this with a partial unique index and the
// enroller with a lookup-before-insert check.
type CampaignEnrollment struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"   validate:"required"`
	CampaignID string           `json:"campaign_id" validate:"required"`
	ContactID  string           `json:"contact_id"  validate:"required"`
	DealID     string           `json:"deal_id,omitempty"`
	Status     EnrollmentStatus `json:"status"`
	Source     EnrollmentSource `json:"source"`

	CurrentStepID    string `json:"current_step_id,omitempty"`
	CurrentStepOrder int    `json:"current_step_order"`

	StepsCompleted int64 `json:"steps_completed"`
	StepsFailed    int64 `json:"steps_failed"`
	EmailsSent     int64 `json:"emails_sent"`
	SMSSent        int64 `json:"sms_sent"`

	GoalAchieved bool           `json:"goal_achieved"`
	ExitReason   string         `json:"exit_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	EnrolledAt          time.Time  `json:"enrolled_at"`
	LastStepExecutedAt  *time.Time `json:"last_step_executed_at,omitempty"`
	NextStepScheduledAt *time.Time `json:"next_step_scheduled_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	ExitedAt            *time.Time `json:"exited_at,omitempty"`
}

// InProgress reports whether the enrollment still occupies the
// one-active-enrollment slot for its (campaign, contact) pair.
func (e *CampaignEnrollment) InProgress() bool {
	return e.Status == EnrollmentStatusActive || e.Status == EnrollmentStatusPaused
}

// Exit marks the enrollment exited with the given reason.
func (e *CampaignEnrollment) Exit(reason string, at time.Time) {
	e.Status = EnrollmentStatusExited
	e.ExitReason = reason
	e.ExitedAt = &at
	e.NextStepScheduledAt = nil
}

// Complete marks the enrollment completed.
func (e *CampaignEnrollment) Complete(at time.Time) {
	e.Status = EnrollmentStatusCompleted
	e.CompletedAt = &at
	e.NextStepScheduledAt = nil
}
