package notify

import (
	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds notify handlers bound to one notifier.
type Factory struct {
	notifier delivery.Notifier
}

func NewFactory(notifier delivery.Notifier) *Factory {
	return &Factory{notifier: notifier}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindNotify
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string"},
			"message": {"type": "string", "minLength": 1}
		},
		"required": ["message"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.notifier)
}
