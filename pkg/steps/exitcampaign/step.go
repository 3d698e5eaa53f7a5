// Package exitcampaign implements the exit_campaign step kind: the enrollment
// leaves the campaign with a configured reason and no further step is
// scheduled. Optionally a follow-up task is created for the contact.
package exitcampaign

import (
	"context"
	"fmt"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

// Handler exits the enrollment from its campaign.
type Handler struct {
	Reason            string
	FollowUpTaskTitle string
	AssigneeID        string

	store persistence.Persistence
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, store persistence.Persistence) (*Handler, error) {
	reason, _ := config["reason"].(string)
	if reason == "" {
		reason = models.ExitReasonStepExit
	}

	followUpTitle, _ := config["follow_up_task_title"].(string)
	assigneeID, _ := config["assignee_id"].(string)

	return &Handler{
		Reason:            reason,
		FollowUpTaskTitle: followUpTitle,
		AssigneeID:        assigneeID,
		store:             store,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	output := map[string]any{
		"reason": h.Reason,
	}

	if h.FollowUpTaskTitle != "" && executionCtx.Contact != nil {
		title, err := template.RenderForContact(h.FollowUpTaskTitle, executionCtx.Contact, executionCtx.Deal)
		if err != nil {
			return nil, fmt.Errorf("failed to render follow-up task title: %w", err)
		}

		task := &models.ContactTask{
			TenantID:   executionCtx.Enrollment.TenantID,
			ContactID:  executionCtx.Contact.ID,
			AssigneeID: h.AssigneeID,
			Title:      title,
		}

		err = h.store.SaveTask(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("failed to create follow-up task: %w", err)
		}

		output["follow_up_task_id"] = task.ID
	}

	output["exited_at"] = time.Now().UTC().Format(time.RFC3339)

	return &protocol.StepResult{
		Output:       output,
		ExitCampaign: true,
		ExitReason:   h.Reason,
	}, nil
}
