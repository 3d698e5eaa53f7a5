package managetags

import (
	"context"
	"testing"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManageTags(t *testing.T) {
	store := memory.NewPersistence()
	contact := &models.Contact{ID: "c1", TenantID: "t1", Tags: []string{"lead", "newsletter"}}
	require.NoError(t, store.SaveContact(context.Background(), contact))

	handler, err := NewHandler(map[string]any{
		"add":    []any{"customer", "lead"},
		"remove": []any{"newsletter"},
	}, store)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), protocol.ExecutionContext{Contact: contact})
	require.NoError(t, err)

	saved, err := store.ContactByID(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lead", "customer"}, saved.Tags)
	assert.NotNil(t, result.Output["tags"])
}

func TestManageTagsRequiresConfig(t *testing.T) {
	_, err := NewHandler(map[string]any{}, memory.NewPersistence())
	assert.Error(t, err)
}

func TestManageTagsRequiresContact(t *testing.T) {
	handler, err := NewHandler(map[string]any{"add": []any{"x"}}, memory.NewPersistence())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), protocol.ExecutionContext{})
	assert.Error(t, err)
}
