package changestage

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds change_stage handlers.
type Factory struct {
	store persistence.Persistence
}

func NewFactory(store persistence.Persistence) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindChangeStage
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"to_stage": {"type": "string", "minLength": 1},
			"allowed_from": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["to_stage"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.store)
}
