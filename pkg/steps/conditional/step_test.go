package conditional

import (
	"context"
	"testing"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executionContext() protocol.ExecutionContext {
	return protocol.ExecutionContext{
		Step: &models.CampaignStep{
			Kind:        models.StepKindConditional,
			TrueStepID:  "step-yes",
			FalseStepID: "step-no",
		},
		Enrollment: &models.CampaignEnrollment{},
		Contact: &models.Contact{
			FirstName: "Ada",
			Email:     "ada@example.com",
			Tags:      []string{"vip"},
			Fields:    map[string]any{"score": 42.0, "region": "emea"},
		},
		Deal: &models.Deal{Pipeline: "sales", Stage: "qualified"},
	}
}

func TestNewHandlerValidation(t *testing.T) {
	_, err := NewHandler(map[string]any{})
	assert.Error(t, err)

	_, err = NewHandler(map[string]any{"rules": []any{map[string]any{"field": "contact.email"}}})
	assert.Error(t, err)

	_, err = NewHandler(map[string]any{
		"rules": []any{map[string]any{"field": "contact.email", "op": "exists"}},
		"match": "some",
	})
	assert.Error(t, err)
}

func TestConditionalTrueBranch(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"rules": []any{
			map[string]any{"field": "contact.region", "op": "equals", "value": "emea"},
			map[string]any{"field": "deal.stage", "op": "equals", "value": "qualified"},
		},
	})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext())
	require.NoError(t, err)
	assert.Equal(t, "step-yes", result.NextStepID)
	assert.Equal(t, true, result.Output["outcome"])
}

func TestConditionalFalseBranch(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"rules": []any{
			map[string]any{"field": "contact.region", "op": "equals", "value": "apac"},
		},
	})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext())
	require.NoError(t, err)
	assert.Equal(t, "step-no", result.NextStepID)
	assert.Equal(t, false, result.Output["outcome"])
}

func TestConditionalMatchAny(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"match": "any",
		"rules": []any{
			map[string]any{"field": "contact.region", "op": "equals", "value": "apac"},
			map[string]any{"field": "tag.vip", "op": "exists"},
		},
	})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext())
	require.NoError(t, err)
	assert.Equal(t, "step-yes", result.NextStepID)
}

func TestConditionalNumericOps(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"rules": []any{
			map[string]any{"field": "contact.score", "op": "gt", "value": 40},
			map[string]any{"field": "contact.score", "op": "lt", "value": 50},
		},
	})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext())
	require.NoError(t, err)
	assert.Equal(t, "step-yes", result.NextStepID)
}

func TestConditionalMissingField(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"rules": []any{
			map[string]any{"field": "contact.favorite_color", "op": "exists"},
		},
	})
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), executionContext())
	require.NoError(t, err)
	assert.Equal(t, "step-no", result.NextStepID)
}

func TestConditionalUnsupportedOp(t *testing.T) {
	handler, err := NewHandler(map[string]any{
		"rules": []any{
			map[string]any{"field": "contact.email", "op": "resembles", "value": "x"},
		},
	})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), executionContext())
	assert.Error(t, err)
}
