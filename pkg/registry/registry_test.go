package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct{}

func (stubHandler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	return &protocol.StepResult{Output: map[string]any{"ok": true}}, nil
}

type stubFactory struct {
	kind   models.StepKind
	schema string
}

func (f stubFactory) Kind() models.StepKind { return f.kind }

func (f stubFactory) Schema() string { return f.schema }

func (f stubFactory) Create(config map[string]any) (protocol.StepHandler, error) {
	return stubHandler{}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestRegistryCreateHandler(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(stubFactory{kind: models.StepKindWait})

	handler, err := reg.CreateHandler(models.StepKindWait, nil)
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRegistryUnknownKind(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.CreateHandler("smoke_signal", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistryDuplicateKindPanics(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(stubFactory{kind: models.StepKindWait})

	assert.Panics(t, func() {
		reg.Register(stubFactory{kind: models.StepKindWait})
	})
}

func TestRegistrySchemaValidation(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": {"subject": {"type": "string", "minLength": 1}},
		"required": ["subject"]
	}`

	reg := newTestRegistry()
	reg.Register(stubFactory{kind: models.StepKindSendEmail, schema: schema})

	t.Run("valid config", func(t *testing.T) {
		_, err := reg.CreateHandler(models.StepKindSendEmail, map[string]any{"subject": "Welcome"})
		assert.NoError(t, err)
	})

	t.Run("missing required key", func(t *testing.T) {
		_, err := reg.CreateHandler(models.StepKindSendEmail, map[string]any{})
		assert.Error(t, err)
	})

	t.Run("nil config still validated", func(t *testing.T) {
		_, err := reg.CreateHandler(models.StepKindSendEmail, nil)
		assert.Error(t, err)
	})
}

func TestRegistryKinds(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(stubFactory{kind: models.StepKindWait})
	reg.Register(stubFactory{kind: models.StepKindNotify})

	assert.ElementsMatch(t, []models.StepKind{models.StepKindWait, models.StepKindNotify}, reg.Kinds())
}
