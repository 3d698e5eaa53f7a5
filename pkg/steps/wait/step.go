// Package wait implements the wait step kind. A wait step has no side
// effect; its entire purpose is the delay it carries before firing.
package wait

import (
	"context"

	"github.com/evercrm/cadence/pkg/protocol"
)

// Handler completes immediately.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Execute(ctx context.Context, executionCtx protocol.ExecutionContext) (*protocol.StepResult, error) {
	return &protocol.StepResult{
		Output: map[string]any{"waited": true},
	}, nil
}
