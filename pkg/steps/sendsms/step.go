// Package sendsms implements the send_sms step kind.
package sendsms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/template"
)

// Handler sends one templated text message to the enrollment's contact.
type Handler struct {
	Message string

	sender delivery.SMSSender
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, sender delivery.SMSSender) (*Handler, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, errors.New("send_sms config requires a message")
	}

	return &Handler{Message: message, sender: sender}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	contact := executionCtx.Contact
	if contact == nil || contact.Phone == "" {
		return nil, errors.New("contact has no phone number")
	}

	message, err := template.RenderForContact(h.Message, contact, executionCtx.Deal)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	providerID, err := h.sender.SendSMS(ctx, delivery.SMSMessage{
		To:      contact.Phone,
		Message: message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send sms: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"provider_message_id": providerID,
			"to":                  contact.Phone,
			"sent_at":             time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
