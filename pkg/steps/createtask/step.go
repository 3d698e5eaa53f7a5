// Package createtask implements the create_task step kind.
package createtask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

// Handler creates a follow-up task tied to the enrollment's contact.
type Handler struct {
	Title       string
	Description string
	DueInDays   int
	AssigneeID  string

	store persistence.Persistence
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, store persistence.Persistence) (*Handler, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, errors.New("create_task config requires a title")
	}

	description, _ := config["description"].(string)
	assigneeID, _ := config["assignee_id"].(string)

	dueInDays := 0
	if raw, ok := config["due_in_days"].(float64); ok {
		dueInDays = int(raw)
	}

	return &Handler{
		Title:       title,
		Description: description,
		DueInDays:   dueInDays,
		AssigneeID:  assigneeID,
		store:       store,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	contact := executionCtx.Contact
	if contact == nil {
		return nil, errors.New("create_task requires a contact")
	}

	title, err := template.RenderForContact(h.Title, contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render task title: %w", err)
	}

	dueAt := time.Now().UTC().AddDate(0, 0, h.DueInDays)

	task := &models.ContactTask{
		TenantID:    executionCtx.Enrollment.TenantID,
		ContactID:   contact.ID,
		AssigneeID:  h.AssigneeID,
		Title:       title,
		Description: h.Description,
		DueAt:       &dueAt,
	}

	err = h.store.SaveTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"task_id": task.ID,
			"title":   title,
			"due_at":  dueAt.Format(time.RFC3339),
		},
	}, nil
}
