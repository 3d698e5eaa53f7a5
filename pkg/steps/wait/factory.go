package wait

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds wait handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindWait
}

func (f *Factory) Schema() string {
	return ""
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(), nil
}
