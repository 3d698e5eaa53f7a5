// Package updatefield implements the update_field step kind.
package updatefield

import (
	"context"
	"errors"
	"fmt"

	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

const (
	targetContact = "contact"
	targetDeal    = "deal"
)

// Handler writes one field on the contact or the linked deal.
type Handler struct {
	Target string
	Field  string
	Value  any

	store persistence.Persistence
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, store persistence.Persistence) (*Handler, error) {
	target, _ := config["target"].(string)
	if target == "" {
		target = targetContact
	}

	if target != targetContact && target != targetDeal {
		return nil, fmt.Errorf("update_field target must be %q or %q", targetContact, targetDeal)
	}

	field, _ := config["field"].(string)
	if field == "" {
		return nil, errors.New("update_field config requires a field")
	}

	return &Handler{
		Target: target,
		Field:  field,
		Value:  config["value"],
		store:  store,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	switch h.Target {
	case targetDeal:
		deal := executionCtx.Deal
		if deal == nil {
			return nil, errors.New("update_field targets the deal but the enrollment has none")
		}

		if deal.Fields == nil {
			deal.Fields = make(map[string]any)
		}

		deal.Fields[h.Field] = h.Value

		err := h.store.SaveDeal(ctx, deal)
		if err != nil {
			return nil, fmt.Errorf("failed to update deal field: %w", err)
		}

	default:
		contact := executionCtx.Contact
		if contact == nil {
			return nil, errors.New("update_field requires a contact")
		}

		if contact.Fields == nil {
			contact.Fields = make(map[string]any)
		}

		contact.Fields[h.Field] = h.Value

		err := h.store.SaveContact(ctx, contact)
		if err != nil {
			return nil, fmt.Errorf("failed to update contact field: %w", err)
		}
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"target": h.Target,
			"field":  h.Field,
			"value":  h.Value,
		},
	}, nil
}
