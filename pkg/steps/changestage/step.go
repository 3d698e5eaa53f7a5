// Package changestage implements the change_stage step kind: the enrollment's
// linked deal is moved to a configured pipeline stage. The resulting stage
// change is reported back so triggers can react to it like any other.
package changestage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
)

// Handler moves the linked deal to a new stage.
type Handler struct {
	ToStage     string
	AllowedFrom []string

	store persistence.Persistence
}

// NewHandler builds a handler from step configuration.
func NewHandler(config map[string]any, store persistence.Persistence) (*Handler, error) {
	toStage, _ := config["to_stage"].(string)
	if toStage == "" {
		return nil, errors.New("change_stage config requires to_stage")
	}

	var allowedFrom []string

	if raw, ok := config["allowed_from"].([]any); ok {
		for _, item := range raw {
			stage, ok := item.(string)
			if ok && stage != "" {
				allowedFrom = append(allowedFrom, stage)
			}
		}
	}

	return &Handler{
		ToStage:     toStage,
		AllowedFrom: allowedFrom,
		store:       store,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	deal := executionCtx.Deal
	if deal == nil {
		return nil, errors.New("change_stage requires a linked deal")
	}

	if len(h.AllowedFrom) > 0 && !h.allowed(deal.Stage) {
		return nil, fmt.Errorf("stage transition from %q to %q is not allowed", deal.Stage, h.ToStage)
	}

	if deal.Stage == h.ToStage {
		return &protocol.StepResult{
			Output: map[string]any{
				"stage":     deal.Stage,
				"unchanged": true,
			},
		}, nil
	}

	fromStage := deal.Stage
	deal.Stage = h.ToStage

	err := h.store.SaveDeal(ctx, deal)
	if err != nil {
		return nil, fmt.Errorf("failed to save deal: %w", err)
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"from_stage": fromStage,
			"to_stage":   h.ToStage,
		},
		StageChanged: &models.StageChangeEvent{
			TenantID:  deal.TenantID,
			DealID:    deal.ID,
			ContactID: deal.ContactID,
			Pipeline:  deal.Pipeline,
			FromStage: fromStage,
			ToStage:   h.ToStage,
			ChangedBy: "campaign",
			ChangedAt: time.Now().UTC(),
		},
	}, nil
}

func (h *Handler) allowed(stage string) bool {
	for _, allowed := range h.AllowedFrom {
		if allowed == stage {
			return true
		}
	}

	return false
}
