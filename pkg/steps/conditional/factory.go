package conditional

import (
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Factory builds conditional handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() models.StepKind {
	return models.StepKindConditional
}

func (f *Factory) Schema() string {
	return `{
		"type": "object",
		"properties": {
			"rules": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"properties": {
						"field": {"type": "string", "minLength": 1},
						"op": {"type": "string", "enum": ["equals", "not_equals", "contains", "exists", "not_exists", "gt", "lt"]},
						"value": {}
					},
					"required": ["field", "op"]
				}
			},
			"match": {"type": "string", "enum": ["all", "any"]}
		},
		"required": ["rules"]
	}`
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	return NewHandler(config)
}
