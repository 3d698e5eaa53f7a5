package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evercrm/cadence/pkg/eventbus"
	"github.com/evercrm/cadence/pkg/events"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/otelhelper"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/evercrm/cadence/pkg/registry"
	"github.com/evercrm/cadence/pkg/scheduler"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultBatchSize = 100
	defaultWorkers   = 8
)

// Stats summarizes one polling cycle.
type Stats struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// Engine polls for due step executions, claims them atomically and runs the
// step handler for each. A claim that another instance already won is
// silently dropped, so multiple engines can poll the same store.
type Engine struct {
	store    persistence.Persistence
	registry *registry.Registry
	bus      eventbus.EventPublisher
	tracer   trace.Tracer
	logger   *slog.Logger

	batchSize int
	workers   int
}

type EngineOption func(*Engine)

func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func NewEngine(store persistence.Persistence, reg *registry.Registry, bus eventbus.EventPublisher, logger *slog.Logger, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:     store,
		registry:  reg,
		bus:       bus,
		tracer:    noop.NewTracerProvider().Tracer("cadence-engine"),
		logger:    logger.With("module", "engine"),
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// ProcessPendingExecutions runs one polling cycle: fetch due executions,
// fan them out to workers, and return aggregate stats.
func (e *Engine) ProcessPendingExecutions(ctx context.Context, now time.Time) (Stats, error) {
	executions, err := e.store.DuePendingExecutions(ctx, now, e.batchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to fetch due executions: %w", err)
	}

	if len(executions) == 0 {
		return Stats{}, nil
	}

	var (
		mu    sync.Mutex
		stats Stats
		wg    sync.WaitGroup
	)

	sem := make(chan struct{}, e.workers)

	for _, execution := range executions {
		wg.Add(1)
		sem <- struct{}{}

		go func(execution *models.CampaignStepExecution) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := e.processOne(ctx, execution)

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case outcomeSucceeded:
				stats.Processed++
				stats.Succeeded++
			case outcomeFailed:
				stats.Processed++
				stats.Failed++
			case outcomeSkipped:
				stats.Skipped++
			case outcomeLostClaim:
			}
		}(execution)
	}

	wg.Wait()

	e.logger.Info("Completed polling cycle",
		"due", len(executions),
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped)

	return stats, nil
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeLostClaim
)

func (e *Engine) processOne(ctx context.Context, execution *models.CampaignStepExecution) outcome {
	logger := e.logger.With(
		"execution_id", execution.ID,
		"enrollment_id", execution.EnrollmentID,
		"campaign_id", execution.CampaignID,
		"step_id", execution.StepID,
	)

	startedAt := time.Now().UTC()

	claimed, err := e.store.ClaimExecution(ctx, execution.ID, startedAt)
	if err != nil {
		logger.Error("Failed to claim execution", "error", err)

		return outcomeLostClaim
	}

	if !claimed {
		logger.Debug("Another worker claimed the execution")

		return outcomeLostClaim
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt

	// The enrollment may have exited between polling and claiming.
	enrollment, err := e.store.EnrollmentByID(ctx, execution.EnrollmentID)
	if err != nil {
		logger.Error("Failed to load enrollment", "error", err)

		return e.markSkipped(ctx, execution, logger)
	}

	if enrollment.Status != models.EnrollmentStatusActive {
		logger.Debug("Enrollment no longer active, skipping", "status", enrollment.Status)

		return e.markSkipped(ctx, execution, logger)
	}

	campaign, err := e.store.CampaignByID(ctx, execution.CampaignID)
	if err != nil {
		logger.Error("Failed to load campaign", "error", err)

		return e.markFailed(ctx, execution, enrollment, nil, fmt.Errorf("campaign unavailable: %w", err), startedAt, logger)
	}

	step := campaign.StepByID(execution.StepID)
	if step == nil {
		return e.markFailed(ctx, execution, enrollment, nil, fmt.Errorf("step %s no longer exists in campaign", execution.StepID), startedAt, logger)
	}

	logger = logger.With("step_kind", step.Kind)

	spanCtx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_step",
		attribute.String(otelhelper.TenantIDKey, execution.TenantID),
		attribute.String(otelhelper.CampaignIDKey, execution.CampaignID),
		attribute.String(otelhelper.EnrollmentIDKey, execution.EnrollmentID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepKindKey, string(step.Kind)),
	)
	defer span.End()

	result, err := e.runStep(spanCtx, execution, campaign, step, enrollment, logger)
	if err != nil {
		span.RecordError(err)

		return e.markFailed(spanCtx, execution, enrollment, step, err, startedAt, logger)
	}

	return e.markCompleted(spanCtx, execution, campaign, step, enrollment, result, startedAt, logger)
}

func (e *Engine) runStep(ctx context.Context, execution *models.CampaignStepExecution, campaign *models.Campaign, step *models.CampaignStep, enrollment *models.CampaignEnrollment, logger *slog.Logger) (*protocol.StepResult, error) {
	contact, err := e.store.ContactByID(ctx, execution.TenantID, enrollment.ContactID)
	if err != nil && !persistence.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}

	var deal *models.Deal

	if enrollment.DealID != "" {
		deal, err = e.store.DealByID(ctx, execution.TenantID, enrollment.DealID)
		if err != nil && !persistence.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load deal: %w", err)
		}
	}

	handler, err := e.registry.CreateHandler(step.Kind, step.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create step handler: %w", err)
	}

	return handler.Execute(ctx, protocol.ExecutionContext{
		Execution:  execution,
		Campaign:   campaign,
		Step:       step,
		Enrollment: enrollment,
		Contact:    contact,
		Deal:       deal,
		Logger:     logger,
	})
}

func (e *Engine) markSkipped(ctx context.Context, execution *models.CampaignStepExecution, logger *slog.Logger) outcome {
	completedAt := time.Now().UTC()

	execution.Status = models.ExecutionStatusSkipped
	execution.CompletedAt = &completedAt

	err := e.store.SaveExecution(ctx, execution)
	if err != nil {
		logger.Error("Failed to save skipped execution", "error", err)
	}

	return outcomeSkipped
}

// markFailed records a terminal failure. The enrollment keeps its current
// step and no retry is scheduled; the failure stays visible for operators.
func (e *Engine) markFailed(ctx context.Context, execution *models.CampaignStepExecution, enrollment *models.CampaignEnrollment, step *models.CampaignStep, stepErr error, startedAt time.Time, logger *slog.Logger) outcome {
	completedAt := time.Now().UTC()

	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = stepErr.Error()
	execution.CompletedAt = &completedAt

	err := e.store.SaveExecution(ctx, execution)
	if err != nil {
		logger.Error("Failed to save failed execution", "error", err)
	}

	if step != nil {
		err = e.store.IncrementStepCounters(ctx, step.ID, persistence.StepCounterDelta{Executed: 1, Failed: 1})
		if err != nil {
			logger.Error("Failed to increment step counters", "error", err)
		}
	}

	enrollment.StepsFailed++

	err = e.store.SaveEnrollment(ctx, enrollment)
	if err != nil {
		logger.Error("Failed to save enrollment after failure", "error", err)
	}

	logger.Error("Step execution failed", "error", stepErr)

	e.publish(ctx, execution.CampaignID, events.ExecutionFailed{
		BaseEvent:    events.NewBaseEvent(events.ExecutionFailedEvent, execution.TenantID, execution.CampaignID),
		ExecutionID:  execution.ID,
		EnrollmentID: execution.EnrollmentID,
		StepID:       execution.StepID,
		StepKind:     stepKind(step),
		Error:        stepErr.Error(),
		DurationMs:   completedAt.Sub(startedAt).Milliseconds(),
	})

	return outcomeFailed
}

func (e *Engine) markCompleted(ctx context.Context, execution *models.CampaignStepExecution, campaign *models.Campaign, step *models.CampaignStep, enrollment *models.CampaignEnrollment, result *protocol.StepResult, startedAt time.Time, logger *slog.Logger) outcome {
	completedAt := time.Now().UTC()

	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt

	if result != nil {
		execution.Result = result.Output
	}

	err := e.store.SaveExecution(ctx, execution)
	if err != nil {
		logger.Error("Failed to save completed execution", "error", err)
	}

	err = e.store.IncrementStepCounters(ctx, step.ID, persistence.StepCounterDelta{Executed: 1, Succeeded: 1})
	if err != nil {
		logger.Error("Failed to increment step counters", "error", err)
	}

	enrollment.StepsCompleted++
	enrollment.LastStepExecutedAt = &completedAt

	switch step.Kind {
	case models.StepKindSendEmail:
		enrollment.EmailsSent++
	case models.StepKindSendSMS:
		enrollment.SMSSent++
	}

	if result != nil && result.StageChanged != nil {
		e.publishStageChange(ctx, result.StageChanged)
	}

	if result != nil && result.ExitCampaign {
		e.exitEnrollment(ctx, enrollment, result.ExitReason, completedAt, logger)
	} else {
		e.advance(ctx, execution, campaign, step, enrollment, result, completedAt, logger)
	}

	err = e.store.SaveEnrollment(ctx, enrollment)
	if err != nil {
		logger.Error("Failed to save enrollment after completion", "error", err)
	}

	logger.Info("Step executed", "duration_ms", completedAt.Sub(startedAt).Milliseconds())

	e.publish(ctx, execution.CampaignID, events.ExecutionCompleted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionCompletedEvent, execution.TenantID, execution.CampaignID),
		ExecutionID:  execution.ID,
		EnrollmentID: execution.EnrollmentID,
		StepID:       execution.StepID,
		StepKind:     string(step.Kind),
		Result:       execution.Result,
		DurationMs:   completedAt.Sub(startedAt).Milliseconds(),
	})

	return outcomeSucceeded
}

// advance moves the enrollment to its next step. Conditional steps override
// the default next-by-order successor through result.NextStepID; when no
// successor remains the enrollment completes.
func (e *Engine) advance(ctx context.Context, execution *models.CampaignStepExecution, campaign *models.Campaign, step *models.CampaignStep, enrollment *models.CampaignEnrollment, result *protocol.StepResult, completedAt time.Time, logger *slog.Logger) {
	var next *models.CampaignStep

	if result != nil && result.NextStepID != "" {
		next = campaign.StepByID(result.NextStepID)
		if next == nil {
			logger.Warn("Branch target step missing, falling back to step order", "next_step_id", result.NextStepID)
		}
	}

	if next == nil {
		next = campaign.NextStepAfter(step.StepOrder)
	}

	if next == nil {
		enrollment.Complete(completedAt)

		err := e.store.IncrementCampaignCounters(ctx, campaign.ID, persistence.CounterDelta{Completed: 1})
		if err != nil {
			logger.Error("Failed to increment campaign counters", "error", err)
		}

		logger.Info("Enrollment completed", "steps_completed", enrollment.StepsCompleted)

		e.publish(ctx, campaign.ID, events.EnrollmentCompleted{
			BaseEvent:      events.NewBaseEvent(events.EnrollmentCompletedEvent, enrollment.TenantID, campaign.ID),
			EnrollmentID:   enrollment.ID,
			ContactID:      enrollment.ContactID,
			StepsCompleted: int(enrollment.StepsCompleted),
		})

		return
	}

	runAt := scheduler.NextRunAt(completedAt, next, campaign)

	enrollment.CurrentStepID = next.ID
	enrollment.CurrentStepOrder = next.StepOrder
	enrollment.NextStepScheduledAt = &runAt

	nextExecution := &models.CampaignStepExecution{
		ID:           uuid.Must(uuid.NewV7()).String(),
		TenantID:     execution.TenantID,
		CampaignID:   campaign.ID,
		EnrollmentID: enrollment.ID,
		StepID:       next.ID,
		Status:       models.ExecutionStatusPending,
		ScheduledAt:  runAt,
	}

	err := e.store.SaveExecution(ctx, nextExecution)
	if err != nil {
		logger.Error("Failed to schedule next step", "next_step_id", next.ID, "error", err)

		return
	}

	logger.Debug("Scheduled next step",
		"next_step_id", next.ID,
		"next_step_order", next.StepOrder,
		"scheduled_at", runAt)
}

func (e *Engine) exitEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment, reason string, at time.Time, logger *slog.Logger) {
	if reason == "" {
		reason = models.ExitReasonStepExit
	}

	enrollment.Exit(reason, at)

	err := e.store.CancelPendingExecutions(ctx, enrollment.ID)
	if err != nil {
		logger.Error("Failed to cancel pending executions", "error", err)
	}

	logger.Info("Enrollment exited by step", "exit_reason", reason)

	e.publish(ctx, enrollment.CampaignID, events.EnrollmentExited{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentExitedEvent, enrollment.TenantID, enrollment.CampaignID),
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
		ExitReason:   reason,
	})
}

func (e *Engine) publishStageChange(ctx context.Context, change *models.StageChangeEvent) {
	e.publish(ctx, change.DealID, events.DealStageChanged{
		BaseEvent: events.NewBaseEvent(events.DealStageChangedEvent, change.TenantID, ""),
		DealID:    change.DealID,
		ContactID: change.ContactID,
		Pipeline:  change.Pipeline,
		FromStage: change.FromStage,
		ToStage:   change.ToStage,
		ChangedBy: change.ChangedBy,
		ChangedAt: change.ChangedAt,
	})
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	err := e.bus.Publish(ctx, key, event)
	if err != nil {
		e.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func stepKind(step *models.CampaignStep) string {
	if step == nil {
		return ""
	}

	return string(step.Kind)
}
