// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"log/slog"

	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/registry"
	"github.com/evercrm/cadence/pkg/steps"
)

// NewRegistry builds a registry with every native step kind registered.
// Delivery currently goes through the logging sender; real providers plug in
// behind the same ports.
func NewRegistry(logger *slog.Logger, store persistence.Persistence) *registry.Registry {
	reg := registry.NewRegistry(logger)
	sender := delivery.NewLogSender(logger)

	steps.RegisterDefaults(reg, store, steps.Senders{
		Email:    sender,
		SMS:      sender,
		Notifier: sender,
	})

	return reg
}
