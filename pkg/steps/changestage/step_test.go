package changestage

import (
	"context"
	"testing"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dealContext(store *memory.Persistence, stage string) protocol.ExecutionContext {
	deal := &models.Deal{
		ID:        "d1",
		TenantID:  "t1",
		ContactID: "c1",
		Pipeline:  "sales",
		Stage:     stage,
	}

	_ = store.SaveDeal(context.Background(), deal)

	return protocol.ExecutionContext{
		Enrollment: &models.CampaignEnrollment{TenantID: "t1", DealID: "d1"},
		Deal:       deal,
	}
}

func TestChangeStage(t *testing.T) {
	store := memory.NewPersistence()

	handler, err := NewHandler(map[string]any{"to_stage": "won"}, store)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), dealContext(store, "negotiation"))
	require.NoError(t, err)

	require.NotNil(t, result.StageChanged)
	assert.Equal(t, "negotiation", result.StageChanged.FromStage)
	assert.Equal(t, "won", result.StageChanged.ToStage)
	assert.Equal(t, "sales", result.StageChanged.Pipeline)
	assert.Equal(t, "campaign", result.StageChanged.ChangedBy)

	saved, err := store.DealByID(context.Background(), "t1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "won", saved.Stage)
}

func TestChangeStageRequiresConfig(t *testing.T) {
	_, err := NewHandler(map[string]any{}, memory.NewPersistence())
	assert.Error(t, err)
}

func TestChangeStageRequiresDeal(t *testing.T) {
	handler, err := NewHandler(map[string]any{"to_stage": "won"}, memory.NewPersistence())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), protocol.ExecutionContext{
		Enrollment: &models.CampaignEnrollment{TenantID: "t1"},
	})
	assert.Error(t, err)
}

func TestChangeStageAllowedFrom(t *testing.T) {
	store := memory.NewPersistence()

	handler, err := NewHandler(map[string]any{
		"to_stage":     "won",
		"allowed_from": []any{"negotiation", "proposal"},
	}, store)
	require.NoError(t, err)

	t.Run("allowed transition", func(t *testing.T) {
		result, err := handler.Execute(context.Background(), dealContext(store, "proposal"))
		require.NoError(t, err)
		assert.NotNil(t, result.StageChanged)
	})

	t.Run("disallowed transition", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), dealContext(store, "lead"))
		assert.Error(t, err)
	})
}

func TestChangeStageNoop(t *testing.T) {
	store := memory.NewPersistence()

	handler, err := NewHandler(map[string]any{"to_stage": "won"}, store)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), dealContext(store, "won"))
	require.NoError(t, err)

	assert.Nil(t, result.StageChanged)
	assert.Equal(t, true, result.Output["unchanged"])
}
