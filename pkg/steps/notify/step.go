// Package notify implements the notify step kind: an internal notification
// intent whose delivery is a collaborator concern.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

// Handler records one notification intent.
type Handler struct {
	UserID  string
	Message string

	notifier delivery.Notifier
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, notifier delivery.Notifier) (*Handler, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, errors.New("notify config requires a message")
	}

	userID, _ := config["user_id"].(string)

	return &Handler{UserID: userID, Message: message, notifier: notifier}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	message, err := template.RenderForContact(h.Message, executionCtx.Contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render notification: %w", err)
	}

	notification := delivery.Notification{
		TenantID: executionCtx.Enrollment.TenantID,
		UserID:   h.UserID,
		Message:  message,
	}

	if executionCtx.Contact != nil {
		notification.ContactID = executionCtx.Contact.ID
	}

	err = h.notifier.Notify(ctx, notification)
	if err != nil {
		return nil, fmt.Errorf("failed to record notification: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"user_id": h.UserID,
			"message": message,
		},
	}, nil
}
