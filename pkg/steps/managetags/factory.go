package managetags

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds manage_tags handlers bound to the store.
type Factory struct {
	store persistence.Persistence
}

func NewFactory(store persistence.Persistence) *Factory {
	return &Factory{store: store}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindManageTags
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"add": {"type": "array", "items": {"type": "string"}},
			"remove": {"type": "array", "items": {"type": "string"}}
		}
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.store)
}
