// Package protocol defines the contracts between the execution engine and
// the per-kind step handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/evercrm/cadence/pkg/models"
)

// ExecutionContext carries everything a step handler may need: the execution
// being run, its step and campaign, the enrollment, and the resolved contact
// and deal. Contact and Deal may be nil for kinds that do not need them.
type ExecutionContext struct {
	Execution  *models.CampaignStepExecution
	Campaign   *models.Campaign
	Step       *models.CampaignStep
	Enrollment *models.CampaignEnrollment
	Contact    *models.Contact
	Deal       *models.Deal
	Logger     *slog.Logger
}

// StepResult is what a handler reports back to the engine.
type StepResult struct {
	// Output becomes the execution's result payload.
	Output map[string]any

	// NextStepID overrides the default next-by-order advance; set by
	// conditional steps.
	NextStepID string

	// ExitCampaign terminates the enrollment instead of advancing.
	ExitCampaign bool
	ExitReason   string

	// StageChanged reports a deal stage transition performed by the step,
	// so the engine can feed it back through trigger evaluation.
	StageChanged *models.StageChangeEvent
}

// StepHandler executes one configured step instance.
type StepHandler interface {
	Execute(ctx context.Context, executionCtx ExecutionContext) (*StepResult, error)
}

// StepFactory builds handlers of one kind from step configuration.
type StepFactory interface {
	Kind() models.StepKind
	// Schema returns the JSON schema document the step config must satisfy,
	// or "" when the kind takes no configuration.
	Schema() string
	Create(config map[string]any) (StepHandler, error)
}
