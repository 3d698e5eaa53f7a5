package createtask

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds create_task handlers bound to the store.
type Factory struct {
	store persistence.Persistence
}

func NewFactory(store persistence.Persistence) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindCreateTask
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"due_in_days": {"type": "integer", "minimum": 0},
			"assignee_id": {"type": "string"}
		},
		"required": ["title"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.store)
}
