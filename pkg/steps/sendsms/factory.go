package sendsms

import (
	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds send_sms handlers bound to one SMS sender.
type Factory struct {
	sender delivery.SMSSender
}

func NewFactory(sender delivery.SMSSender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindSendSMS
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"message": {"type": "string", "minLength": 1}
		},
		"required": ["message"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config, f.sender)
}
