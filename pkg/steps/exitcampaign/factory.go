package exitcampaign

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds exit_campaign handlers.
type Factory struct {
	store persistence.Persistence
}

func NewFactory(store persistence.Persistence) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindExitCampaign
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"reason": {"type": "string"},
			"follow_up_task_title": {"type": "string"},
			"assignee_id": {"type": "string"}
		}
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.store)
}
