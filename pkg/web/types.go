// Package web provides HTTP handlers and request types for the campaign API.
package web

import (
	"time"

	"github.com/evercrm/cadence/pkg/models"
)

// CreateCampaignRequest represents the request body for creating a campaign.
// The campaign is created as a draft; triggers and steps may be supplied
// inline or added through a later update.
type CreateCampaignRequest struct {
	TenantID          string           `json:"tenant_id"               validate:"required"`
	Name              string           `json:"name"                    validate:"required,min=3"`
	Type              string           `json:"type"`
	EnrollmentPolicy  string           `json:"enrollment_policy"       validate:"omitempty,oneof=automatic manual"`
	EnrollmentCap     int              `json:"enrollment_cap"          validate:"gte=0"`
	AllowReenrollment bool             `json:"allow_reenrollment"`
	ReenrollCooldown  int              `json:"reenroll_cooldown_days"  validate:"gte=0"`
	BusinessHours     bool             `json:"respect_business_hours"`
	Timezone          string           `json:"timezone"`
	Triggers          []TriggerRequest `json:"triggers"`
	Steps             []StepRequest    `json:"steps"`
}

// TriggerRequest represents one trigger in a campaign definition.
type TriggerRequest struct {
	Kind       string         `json:"kind"       validate:"required,oneof=stage_change time_based event manual"`
	Config     map[string]any `json:"config"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Priority   int            `json:"priority"`
	Active     bool           `json:"active"`
}

// StepRequest represents one step in a campaign definition.
type StepRequest struct {
	StepOrder   int            `json:"step_order"   validate:"gte=1"`
	Kind        string         `json:"kind"         validate:"required"`
	Config      map[string]any `json:"config"`
	DelayValue  int            `json:"delay_value"  validate:"gte=0"`
	DelayUnit   string         `json:"delay_unit"   validate:"omitempty,oneof=hours days weeks"`
	TrueStepID  string         `json:"true_step_id,omitempty"`
	FalseStepID string         `json:"false_step_id,omitempty"`
}

// EnrollContactRequest represents the request body for a manual enrollment.
type EnrollContactRequest struct {
	TenantID  string         `json:"tenant_id"  validate:"required"`
	ContactID string         `json:"contact_id" validate:"required"`
	DealID    string         `json:"deal_id,omitempty"`
	Source    string         `json:"source"     validate:"omitempty,oneof=manual api bulk"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StageChangeRequest represents an inbound deal stage change notification.
type StageChangeRequest struct {
	TenantID  string     `json:"tenant_id"  validate:"required"`
	DealID    string     `json:"deal_id"    validate:"required"`
	ContactID string     `json:"contact_id,omitempty"`
	Pipeline  string     `json:"pipeline"   validate:"required"`
	FromStage string     `json:"from_stage"`
	ToStage   string     `json:"to_stage"   validate:"required"`
	ChangedBy string     `json:"changed_by,omitempty"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}

// ToCampaign converts the request into a domain campaign.
func (r CreateCampaignRequest) ToCampaign() *models.Campaign {
	campaign := &models.Campaign{
		TenantID:             r.TenantID,
		Name:                 r.Name,
		Type:                 r.Type,
		Status:               models.CampaignStatusDraft,
		EnrollmentPolicy:     models.EnrollmentPolicy(r.EnrollmentPolicy),
		EnrollmentCap:        r.EnrollmentCap,
		AllowReenrollment:    r.AllowReenrollment,
		ReenrollCooldown:     r.ReenrollCooldown,
		RespectBusinessHours: r.BusinessHours,
		Timezone:             r.Timezone,
	}

	for _, t := range r.Triggers {
		campaign.Triggers = append(campaign.Triggers, &models.CampaignTrigger{
			TenantID:   r.TenantID,
			Kind:       models.TriggerKind(t.Kind),
			Config:     t.Config,
			Conditions: t.Conditions,
			Priority:   t.Priority,
			Active:     t.Active,
		})
	}

	for _, s := range r.Steps {
		campaign.Steps = append(campaign.Steps, &models.CampaignStep{
			StepOrder:   s.StepOrder,
			Kind:        models.StepKind(s.Kind),
			Config:      s.Config,
			DelayValue:  s.DelayValue,
			DelayUnit:   models.DelayUnit(s.DelayUnit),
			TrueStepID:  s.TrueStepID,
			FalseStepID: s.FalseStepID,
		})
	}

	return campaign
}

// ToEvent converts the request into a domain stage change event.
func (r StageChangeRequest) ToEvent() *models.StageChangeEvent {
	changedAt := time.Now().UTC()
	if r.ChangedAt != nil {
		changedAt = *r.ChangedAt
	}

	return &models.StageChangeEvent{
		TenantID:  r.TenantID,
		DealID:    r.DealID,
		ContactID: r.ContactID,
		Pipeline:  r.Pipeline,
		FromStage: r.FromStage,
		ToStage:   r.ToStage,
		ChangedBy: r.ChangedBy,
		ChangedAt: changedAt,
	}
}
