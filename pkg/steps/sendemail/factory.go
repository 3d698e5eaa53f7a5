package sendemail

import (
	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds send_email handlers bound to one email sender.
type Factory struct {
	sender delivery.EmailSender
}

func NewFactory(sender delivery.EmailSender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindSendEmail
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"subject": {"type": "string", "minLength": 1},
			"body": {"type": "string"}
		},
		"required": ["subject"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.sender)
}
