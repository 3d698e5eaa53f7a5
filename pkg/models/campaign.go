// Package models defines the core domain models for campaign automation.
package models

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"    // Editable, triggers never fire
	CampaignStatusActive   CampaignStatus = "active"   // Enrolling and executing
	CampaignStatusPaused   CampaignStatus = "paused"   // No new enrollments
	CampaignStatusArchived CampaignStatus = "archived" // Historical, read only
)

// EnrollmentPolicy controls how contacts enter a campaign.
type EnrollmentPolicy string

const (
	EnrollmentPolicyAutomatic EnrollmentPolicy = "automatic" // Triggers enroll contacts
	EnrollmentPolicyManual    EnrollmentPolicy = "manual"    // Only explicit enrollment
)

// Campaign represents a named automation sequence owned by one tenant.
// Campaigns are soft-deleted, never purged.
type Campaign struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"         validate:"required"`
	Name             string           `json:"name"              validate:"required,min=3"`
	Type             string           `json:"type"`
	Status           CampaignStatus   `json:"status"            validate:"required,oneof=draft active paused archived"`
	EnrollmentPolicy EnrollmentPolicy `json:"enrollment_policy" validate:"required,oneof=automatic manual"`
	EnrollmentCap    int              `json:"enrollment_cap"    validate:"gte=0"` // 0 = unlimited

	// Re-enrollment of a contact whose previous enrollment ended.
	AllowReenrollment bool `json:"allow_reenrollment"`
	ReenrollCooldown  int  `json:"reenroll_cooldown_days" validate:"gte=0"`

	// When set, inter-step delays are pushed forward into the next
	// business-hours window of Timezone.
	RespectBusinessHours bool   `json:"respect_business_hours"`
	Timezone             string `json:"timezone"`

	// Cached counters, maintained with additive store updates.
	EnrolledCount  int64   `json:"enrolled_count"`
	CompletedCount int64   `json:"completed_count"`
	Revenue        float64 `json:"revenue"`

	Triggers []*CampaignTrigger `json:"triggers,omitempty"`
	Steps    []*CampaignStep    `json:"steps,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the campaign can enroll and execute.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive && c.DeletedAt == nil
}

// FirstStep returns the step with the smallest order, or nil when the
// campaign has no steps.
func (c *Campaign) FirstStep() *CampaignStep {
	var first *CampaignStep

	for _, step := range c.Steps {
		if first == nil || step.StepOrder < first.StepOrder {
			first = step
		}
	}

	return first
}

// StepByID returns the step with the given ID, or nil.
func (c *Campaign) StepByID(id string) *CampaignStep {
	for _, step := range c.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// NextStepAfter returns the step with the smallest order strictly greater
// than the given order, or nil when the sequence is exhausted. This is the
// default successor; conditional steps may override it with an explicit
// branch target.
func (c *Campaign) NextStepAfter(order int) *CampaignStep {
	var next *CampaignStep

	for _, step := range c.Steps {
		if step.StepOrder <= order {
			continue
		}

		if next == nil || step.StepOrder < next.StepOrder {
			next = step
		}
	}

	return next
}
