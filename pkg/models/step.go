package models

import (
	"fmt"
	"time"
)

// StepKind identifies the action a step performs. Dispatch over kinds is
// exhaustive: the registry refuses campaigns with unknown kinds.
type StepKind string

const (
	StepKindSendEmail    StepKind = "send_email"
	StepKindSendSMS      StepKind = "send_sms"
	StepKindCreateTask   StepKind = "create_task"
	StepKindWait         StepKind = "wait"
	StepKindUpdateField  StepKind = "update_field"
	StepKindManageTags   StepKind = "manage_tags"
	StepKindNotify       StepKind = "notify"
	StepKindWebhook      StepKind = "webhook"
	StepKindConditional  StepKind = "conditional"
	StepKindExitCampaign StepKind = "exit_campaign"
	StepKindChangeStage  StepKind = "change_stage"
)

// StepKinds lists every supported kind.
var StepKinds = []StepKind{
	StepKindSendEmail,
	StepKindSendSMS,
	StepKindCreateTask,
	StepKindWait,
	StepKindUpdateField,
	StepKindManageTags,
	StepKindNotify,
	StepKindWebhook,
	StepKindConditional,
	StepKindExitCampaign,
	StepKindChangeStage,
}

// DelayUnit is the unit of a step's inter-step delay.
type DelayUnit string

const (
	DelayUnitHours DelayUnit = "hours"
	DelayUnitDays  DelayUnit = "days"
	DelayUnitWeeks DelayUnit = "weeks"
)

// CampaignStep is one action in a campaign's ordered sequence. StepOrder is
// strictly increasing within a campaign and is the default sequencing key;
// conditional steps may carry explicit branch targets that override it.
// The delay applies before this step fires, relative to the prior step's
// completion. The first step of an enrollment ignores its own delay.
type CampaignStep struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaign_id" validate:"required"`
	StepOrder  int            `json:"step_order"  validate:"gte=1"`
	Kind       StepKind       `json:"kind"        validate:"required"`
	Config     map[string]any `json:"config"`
	DelayValue int            `json:"delay_value" validate:"gte=0"`
	DelayUnit  DelayUnit      `json:"delay_unit"  validate:"omitempty,oneof=hours days weeks"`

	// Branch targets for conditional steps: step IDs taken instead of the
	// next-by-order successor.
	TrueStepID  string `json:"true_step_id,omitempty"`
	FalseStepID string `json:"false_step_id,omitempty"`

	// Running counters, maintained with additive store updates.
	ExecutedCount  int64 `json:"executed_count"`
	SucceededCount int64 `json:"succeeded_count"`
	FailedCount    int64 `json:"failed_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delay converts the stored delay value and unit into a duration. Calendar
// arithmetic is naive: a day is 24 hours, a week 7 days.
func (s *CampaignStep) Delay() time.Duration {
	if s.DelayValue <= 0 {
		return 0
	}

	switch s.DelayUnit {
	case DelayUnitDays:
		return time.Duration(s.DelayValue) * 24 * time.Hour
	case DelayUnitWeeks:
		return time.Duration(s.DelayValue) * 7 * 24 * time.Hour
	case DelayUnitHours:
		return time.Duration(s.DelayValue) * time.Hour
	default:
		return time.Duration(s.DelayValue) * time.Hour
	}
}

// ValidKind reports whether the step's kind is one of the supported kinds.
func (s *CampaignStep) ValidKind() bool {
	for _, kind := range StepKinds {
		if s.Kind == kind {
			return true
		}
	}

	return false
}

// ValidateSteps checks the structural invariants of a campaign's step
// sequence: strictly increasing orders, known kinds, and branch targets that
// resolve to steps of the same campaign.
func ValidateSteps(steps []*CampaignStep) error {
	byID := make(map[string]*CampaignStep, len(steps))
	byOrder := make(map[int]string, len(steps))

	for _, step := range steps {
		if !step.ValidKind() {
			return fmt.Errorf("step %s: unknown kind %q", step.ID, step.Kind)
		}

		if other, dup := byOrder[step.StepOrder]; dup {
			return fmt.Errorf("step %s: order %d already used by step %s", step.ID, step.StepOrder, other)
		}

		byOrder[step.StepOrder] = step.ID
		byID[step.ID] = step
	}

	for _, step := range steps {
		for _, target := range []string{step.TrueStepID, step.FalseStepID} {
			if target == "" {
				continue
			}

			if step.Kind != StepKindConditional {
				return fmt.Errorf("step %s: branch target on non-conditional step", step.ID)
			}

			if _, ok := byID[target]; !ok {
				return fmt.Errorf("step %s: branch target %s does not resolve", step.ID, target)
			}
		}
	}

	return nil
}
