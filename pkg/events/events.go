// Package events defines event types for campaign lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "cadence.events"                        // Topic for campaign lifecycle events
const StageChangeTopic = "cadence.deal.stage_changes" // Topic for deal stage change ingestion

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Enrollment lifecycle events.
	EnrollmentCreatedEvent   EventType = "enrollment.created"
	EnrollmentCompletedEvent EventType = "enrollment.completed"
	EnrollmentExitedEvent    EventType = "enrollment.exited"

	// Step execution events.
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// CRM ingestion events.
	DealStageChangedEvent EventType = "deal.stage_changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TenantID   string         `json:"tenant_id"`
	CampaignID string         `json:"campaign_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID, campaignID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TenantID:   tenantID,
		CampaignID: campaignID,
	}
}

type EnrollmentCreated struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	ContactID    string `json:"contact_id"`
	Source       string `json:"source"`
	TriggerID    string `json:"trigger_id,omitempty"`
}

func (e EnrollmentCreated) GetType() EventType {
	return EnrollmentCreatedEvent
}

type EnrollmentCompleted struct {
	BaseEvent

	EnrollmentID   string `json:"enrollment_id"`
	ContactID      string `json:"contact_id"`
	StepsCompleted int    `json:"steps_completed"`
}

func (e EnrollmentCompleted) GetType() EventType {
	return EnrollmentCompletedEvent
}

type EnrollmentExited struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	ContactID    string `json:"contact_id"`
	ExitReason   string `json:"exit_reason"`
}

func (e EnrollmentExited) GetType() EventType {
	return EnrollmentExitedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID  string         `json:"execution_id"`
	EnrollmentID string         `json:"enrollment_id"`
	StepID       string         `json:"step_id"`
	StepKind     string         `json:"step_kind"`
	Result       map[string]any `json:"result,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	EnrollmentID string `json:"enrollment_id"`
	StepID       string `json:"step_id"`
	StepKind     string `json:"step_kind"`
	Error        string `json:"error"`
	DurationMs   int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type DealStageChanged struct {
	BaseEvent

	DealID    string    `json:"deal_id"`
	ContactID string    `json:"contact_id"`
	Pipeline  string    `json:"pipeline"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `json:"to_stage"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e DealStageChanged) GetType() EventType {
	return DealStageChangedEvent
}
