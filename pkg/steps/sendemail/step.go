// Package sendemail implements the send_email step kind.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

// Handler sends one templated email to the enrollment's contact.
type Handler struct {
	Subject string
	Body    string

	sender delivery.EmailSender
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, sender delivery.EmailSender) (*Handler, error) {
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	if subject == "" {
		return nil, errors.New("send_email config requires a subject")
	}

	return &Handler{
		Subject: subject,
		Body:    body,
		sender:  sender,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	contact := executionCtx.Contact
	if contact == nil || contact.Email == "" {
		return nil, errors.New("contact has no email address")
	}

	subject, err := template.RenderForContact(h.Subject, contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := template.RenderForContact(h.Body, contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	providerID, err := h.sender.SendEmail(ctx, delivery.EmailMessage{
		To:      contact.Email,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"provider_message_id": providerID,
			"to":                  contact.Email,
			"subject":             subject,
			"sent_at":             time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
