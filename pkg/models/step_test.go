package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepDelay(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		unit     DelayUnit
		expected time.Duration
	}{
		{"zero delay", 0, DelayUnitDays, 0},
		{"hours", 3, DelayUnitHours, 3 * time.Hour},
		{"days", 2, DelayUnitDays, 48 * time.Hour},
		{"weeks", 1, DelayUnitWeeks, 7 * 24 * time.Hour},
		{"missing unit defaults to hours", 5, "", 5 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := &CampaignStep{DelayValue: tt.value, DelayUnit: tt.unit}
			assert.Equal(t, tt.expected, step.Delay())
		})
	}
}

func TestValidateSteps(t *testing.T) {
	t.Run("valid sequence", func(t *testing.T) {
		steps := []*CampaignStep{
			{ID: "s1", StepOrder: 1, Kind: StepKindSendEmail},
			{ID: "s2", StepOrder: 2, Kind: StepKindWait},
			{ID: "s3", StepOrder: 3, Kind: StepKindExitCampaign},
		}
		assert.NoError(t, ValidateSteps(steps))
	})

	t.Run("unknown kind", func(t *testing.T) {
		steps := []*CampaignStep{{ID: "s1", StepOrder: 1, Kind: "teleport"}}
		assert.Error(t, ValidateSteps(steps))
	})

	t.Run("duplicate order", func(t *testing.T) {
		steps := []*CampaignStep{
			{ID: "s1", StepOrder: 1, Kind: StepKindWait},
			{ID: "s2", StepOrder: 1, Kind: StepKindWait},
		}
		assert.Error(t, ValidateSteps(steps))
	})

	t.Run("branch targets allowed on conditional", func(t *testing.T) {
		steps := []*CampaignStep{
			{ID: "s1", StepOrder: 1, Kind: StepKindConditional, TrueStepID: "s2", FalseStepID: "s3"},
			{ID: "s2", StepOrder: 2, Kind: StepKindSendEmail},
			{ID: "s3", StepOrder: 3, Kind: StepKindSendSMS},
		}
		assert.NoError(t, ValidateSteps(steps))
	})

	t.Run("branch target on non-conditional", func(t *testing.T) {
		steps := []*CampaignStep{
			{ID: "s1", StepOrder: 1, Kind: StepKindWait, TrueStepID: "s2"},
			{ID: "s2", StepOrder: 2, Kind: StepKindSendEmail},
		}
		assert.Error(t, ValidateSteps(steps))
	})

	t.Run("unresolved branch target", func(t *testing.T) {
		steps := []*CampaignStep{
			{ID: "s1", StepOrder: 1, Kind: StepKindConditional, TrueStepID: "missing"},
		}
		assert.Error(t, ValidateSteps(steps))
	})
}

func TestCampaignStepNavigation(t *testing.T) {
	campaign := &Campaign{
		Steps: []*CampaignStep{
			{ID: "s3", StepOrder: 30},
			{ID: "s1", StepOrder: 10},
			{ID: "s2", StepOrder: 20},
		},
	}

	assert.Equal(t, "s1", campaign.FirstStep().ID)
	assert.Equal(t, "s2", campaign.NextStepAfter(10).ID)
	assert.Equal(t, "s3", campaign.NextStepAfter(20).ID)
	assert.Nil(t, campaign.NextStepAfter(30))
	assert.Equal(t, "s2", campaign.StepByID("s2").ID)
	assert.Nil(t, campaign.StepByID("nope"))
}

func TestCampaignIsActive(t *testing.T) {
	now := time.Now().UTC()

	active := &Campaign{Status: CampaignStatusActive}
	assert.True(t, active.IsActive())

	paused := &Campaign{Status: CampaignStatusPaused}
	assert.False(t, paused.IsActive())

	deleted := &Campaign{Status: CampaignStatusActive, DeletedAt: &now}
	assert.False(t, deleted.IsActive())
}

func TestEnrollmentTransitions(t *testing.T) {
	now := time.Now().UTC()

	enrollment := &CampaignEnrollment{Status: EnrollmentStatusActive, NextStepScheduledAt: &now}
	assert.True(t, enrollment.InProgress())

	enrollment.Exit(ExitReasonStageChanged, now)
	assert.Equal(t, EnrollmentStatusExited, enrollment.Status)
	assert.Equal(t, ExitReasonStageChanged, enrollment.ExitReason)
	assert.Nil(t, enrollment.NextStepScheduledAt)
	assert.False(t, enrollment.InProgress())

	completed := &CampaignEnrollment{Status: EnrollmentStatusActive}
	completed.Complete(now)
	assert.Equal(t, EnrollmentStatusCompleted, completed.Status)
	assert.Equal(t, now, *completed.CompletedAt)
}

func TestTriggerStageChange(t *testing.T) {
	trigger := &CampaignTrigger{
		Kind: TriggerKindStageChange,
		Config: map[string]any{
			"pipeline":   "sales",
			"from_stage": "lead",
			"to_stage":   "qualified",
		},
	}

	config, ok := trigger.StageChange()
	assert.True(t, ok)
	assert.Equal(t, "sales", config.Pipeline)
	assert.Equal(t, "lead", config.FromStage)
	assert.Equal(t, "qualified", config.ToStage)

	manual := &CampaignTrigger{Kind: TriggerKindManual}
	_, ok = manual.StageChange()
	assert.False(t, ok)

	incomplete := &CampaignTrigger{Kind: TriggerKindStageChange, Config: map[string]any{}}
	_, ok = incomplete.StageChange()
	assert.False(t, ok)
}
