// Package registry holds the step handler factories, keyed by step kind, and
// validates kind-specific configuration before handlers are built.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Registry maps step kinds to their factories.
type Registry struct {
	logger    *slog.Logger
	factories map[models.StepKind]protocol.StepFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.StepKind]protocol.StepFactory),
	}
}

// Register adds a factory. Registering the same kind twice panics: the kind
// set is a compile-time decision, not runtime input.
func (r *Registry) Register(factory protocol.StepFactory) {
	kind := factory.Kind()

	if _, exists := r.factories[kind]; exists {
		panic(fmt.Sprintf("step kind %q registered twice", kind))
	}

	r.factories[kind] = factory
}

// Kinds returns the registered step kinds.
func (r *Registry) Kinds() []models.StepKind {
	kinds := make([]models.StepKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}

// CreateHandler validates config against the kind's schema and builds a
// handler. Unknown kinds and schema violations are configuration errors.
func (r *Registry) CreateHandler(kind models.StepKind, config map[string]any) (protocol.StepHandler, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("step kind %q not registered", kind)
	}

	err := r.validateConfig(factory, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config)
}

func (r *Registry) validateConfig(factory protocol.StepFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == "" {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", factory.Kind(), err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid %s config: %s", factory.Kind(), result.Errors())
	}

	return nil
}
