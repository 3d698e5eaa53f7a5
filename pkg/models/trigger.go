package models

import "time"

// TriggerKind identifies what causes a trigger to fire.
type TriggerKind string

const (
	TriggerKindStageChange TriggerKind = "stage_change"
	TriggerKindTimeBased   TriggerKind = "time_based"
	TriggerKindEvent       TriggerKind = "event"
	TriggerKindManual      TriggerKind = "manual"
)

// CampaignTrigger is a rule that enrolls contacts into its campaign when a
// matching domain event occurs. A campaign may hold several triggers.
type CampaignTrigger struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaign_id" validate:"required"`
	TenantID   string         `json:"tenant_id"   validate:"required"`
	Kind       TriggerKind    `json:"kind"        validate:"required,oneof=stage_change time_based event manual"`
	Config     map[string]any `json:"config"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Priority   int            `json:"priority"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// StageChangeConfig is the kind-specific configuration of a stage_change
// trigger. FromStage is optional; when empty the trigger matches a move into
// ToStage from any stage.
type StageChangeConfig struct {
	Pipeline  string
	FromStage string
	ToStage   string
}

// StageChange extracts the stage_change configuration. Returns false when
// the trigger is not a stage_change trigger or the config carries no
// to_stage, which makes it unmatchable.
func (t *CampaignTrigger) StageChange() (StageChangeConfig, bool) {
	if t.Kind != TriggerKindStageChange {
		return StageChangeConfig{}, false
	}

	cfg := StageChangeConfig{
		Pipeline:  stringConfig(t.Config, "pipeline"),
		FromStage: stringConfig(t.Config, "from_stage"),
		ToStage:   stringConfig(t.Config, "to_stage"),
	}

	if cfg.ToStage == "" {
		return StageChangeConfig{}, false
	}

	return cfg, true
}

func stringConfig(config map[string]any, key string) string {
	if config == nil {
		return ""
	}

	value, _ := config[key].(string)

	return value
}
