// Package managetags implements the manage_tags step kind.
package managetags

import (
	"context"
	"errors"
	"fmt"

	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Handler adds and removes tags on the enrollment's contact. Adds
// de-duplicate against tags the contact already carries.
type Handler struct {
	Add    []string
	Remove []string

	store persistence.Persistence
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, store persistence.Persistence) (*Handler, error) {
	add := stringSlice(config["add"])
	remove := stringSlice(config["remove"])

	if len(add) == 0 && len(remove) == 0 {
		return nil, errors.New("manage_tags config requires tags to add or remove")
	}

	return &Handler{Add: add, Remove: remove, store: store}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	contact := executionCtx.Contact
	if contact == nil {
		return nil, errors.New("manage_tags requires a contact")
	}

	contact.AddTags(h.Add)
	contact.RemoveTags(h.Remove)

	err := h.store.SaveContact(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to save contact tags: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"added":   h.Add,
			"removed": h.Remove,
			"tags":    contact.Tags,
		},
	}, nil
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			result = append(result, s)
		}
	}

	return result
}
