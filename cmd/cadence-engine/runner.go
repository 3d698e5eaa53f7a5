// Package main provides the Cadence engine runner: a cron-driven polling
// loop over due step executions plus an event subscriber that feeds deal
// stage changes back into trigger matching.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evercrm/cadence/pkg/campaign"
	"github.com/evercrm/cadence/pkg/cmd"
	"github.com/evercrm/cadence/pkg/eventbus"
	"github.com/evercrm/cadence/pkg/events"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/otelhelper"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/robfig/cron/v3"
)

type RunnerConfig struct {
	Store        persistence.Persistence
	EventBus     eventbus.EventBus
	Logger       *slog.Logger
	PollSchedule string
	BatchSize    int
	Workers      int
	Tracing      bool
}

type Runner struct {
	config RunnerConfig
	logger *slog.Logger
}

func NewRunner(config RunnerConfig) *Runner {
	return &Runner{
		config: config,
		logger: config.Logger,
	}
}

// Run starts the polling loop and blocks until the context is cancelled or
// a termination signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	registry := cmd.NewRegistry(r.logger, r.config.Store)

	engineOpts := []campaign.EngineOption{
		campaign.WithBatchSize(r.config.BatchSize),
		campaign.WithWorkers(r.config.Workers),
	}

	if r.config.Tracing {
		tracer, err := otelhelper.NewTracer(ctx, "cadence-engine")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		engineOpts = append(engineOpts, campaign.WithTracer(tracer))
	}

	engine := campaign.NewEngine(r.config.Store, registry, r.config.EventBus, r.logger, engineOpts...)
	enroller := campaign.NewEnroller(r.config.Store, r.config.EventBus, nil, r.logger)
	matcher := campaign.NewTriggerMatcher(r.config.Store, enroller, r.config.EventBus, r.logger)

	err := r.subscribeStageChanges(ctx, matcher)
	if err != nil {
		return err
	}

	scheduler := cron.New()

	_, err = scheduler.AddFunc(r.config.PollSchedule, func() {
		_, err := engine.ProcessPendingExecutions(ctx, time.Now().UTC())
		if err != nil {
			r.logger.Error("Polling cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", r.config.PollSchedule, err)
	}

	scheduler.Start()

	r.logger.Info("Engine started",
		"poll_schedule", r.config.PollSchedule,
		"batch_size", r.config.BatchSize,
		"workers", r.config.Workers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		r.logger.Info("Received shutdown signal", "signal", sig.String())
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	r.logger.Info("Engine stopped")

	return nil
}

// subscribeStageChanges re-runs trigger matching for stage changes produced
// by change_stage steps or published by external CRM services.
func (r *Runner) subscribeStageChanges(ctx context.Context, matcher *campaign.TriggerMatcher) error {
	err := r.config.EventBus.Handle(events.DealStageChangedEvent, func(ctx context.Context, event any) error {
		changed, ok := event.(*events.DealStageChanged)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return matcher.HandleStageChange(ctx, &models.StageChangeEvent{
			TenantID:  changed.TenantID,
			DealID:    changed.DealID,
			ContactID: changed.ContactID,
			Pipeline:  changed.Pipeline,
			FromStage: changed.FromStage,
			ToStage:   changed.ToStage,
			ChangedBy: changed.ChangedBy,
			ChangedAt: changed.ChangedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to register stage change handler: %w", err)
	}

	return r.config.EventBus.Subscribe(ctx)
}
