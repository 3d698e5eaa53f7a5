package webhook

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds webhook handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindWebhook
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "minLength": 1},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
			"headers": {"type": "object", "additionalProperties": {"type": "string"}},
			"body": {"type": "string"}
		},
		"required": ["url"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config)
}
