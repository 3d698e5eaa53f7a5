package updatefield

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds update_field handlers bound to the store.
type Factory struct {
	store persistence.Persistence
}

func NewFactory(store persistence.Persistence) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindUpdateField
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"target": {"type": "string", "enum": ["contact", "deal"]},
			"field": {"type": "string", "minLength": 1},
			"value": {}
		},
		"required": ["field"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.store)
}
