package createtask

import (
	"context"
	"testing"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	store := memory.NewPersistence()

	handler, err := NewHandler(map[string]any{
		"title":       "Follow up with {{.contact.first_name}}",
		"description": "Check in after campaign",
		"due_in_days": float64(3),
		"assignee_id": "user-7",
	}, store)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), protocol.ExecutionContext{
		Enrollment: &models.CampaignEnrollment{TenantID: "t1"},
		Contact:    &models.Contact{ID: "c1", FirstName: "Ada"},
	})
	require.NoError(t, err)

	tasks := store.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Follow up with Ada", tasks[0].Title)
	assert.Equal(t, "user-7", tasks[0].AssigneeID)
	assert.Equal(t, "c1", tasks[0].ContactID)

	require.NotNil(t, tasks[0].DueAt)
	expected := time.Now().UTC().AddDate(0, 0, 3)
	assert.WithinDuration(t, expected, *tasks[0].DueAt, time.Minute)

	assert.NotEmpty(t, tasks[0].ID)
	assert.Equal(t, tasks[0].ID, result.Output["task_id"])

	// A second execution creates a second task, not an overwrite.
	second, err := handler.Execute(context.Background(), protocol.ExecutionContext{
		Enrollment: &models.CampaignEnrollment{TenantID: "t1"},
		Contact:    &models.Contact{ID: "c2", FirstName: "Grace"},
	})
	require.NoError(t, err)
	require.Len(t, store.Tasks(), 2)
	assert.NotEqual(t, result.Output["task_id"], second.Output["task_id"])
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	_, err := NewHandler(map[string]any{}, memory.NewPersistence())
	assert.Error(t, err)
}

func TestCreateTaskRequiresContact(t *testing.T) {
	handler, err := NewHandler(map[string]any{"title": "x"}, memory.NewPersistence())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), protocol.ExecutionContext{
		Enrollment: &models.CampaignEnrollment{TenantID: "t1"},
	})
	assert.Error(t, err)
}
