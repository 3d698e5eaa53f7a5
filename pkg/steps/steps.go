// Package steps wires the built-in step kind factories into a registry.
package steps

import (
	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/registry"
	"github.com/evercrm/cadence/pkg/steps/changestage"
	"github.com/evercrm/cadence/pkg/steps/conditional"
	"github.com/evercrm/cadence/pkg/steps/createtask"
	"github.com/evercrm/cadence/pkg/steps/exitcampaign"
	"github.com/evercrm/cadence/pkg/steps/managetags"
	"github.com/evercrm/cadence/pkg/steps/notify"
	"github.com/evercrm/cadence/pkg/steps/sendemail"
	"github.com/evercrm/cadence/pkg/steps/sendsms"
	"github.com/evercrm/cadence/pkg/steps/updatefield"
	"github.com/evercrm/cadence/pkg/steps/wait"
	"github.com/evercrm/cadence/pkg/steps/webhook"
)

// Senders groups the delivery ports used by channel steps.
type Senders struct {
	Email    delivery.EmailSender
	SMS      delivery.SMSSender
	Notifier delivery.Notifier
}

// RegisterDefaults registers a factory for every supported step kind.
func RegisterDefaults(reg *registry.Registry, store persistence.Persistence, senders Senders) {
	reg.Register(sendemail.NewFactory(senders.Email))
	reg.Register(sendsms.NewFactory(senders.SMS))
	reg.Register(createtask.NewFactory(store))
	reg.Register(wait.NewFactory())
	reg.Register(updatefield.NewFactory(store))
	reg.Register(managetags.NewFactory(store))
	reg.Register(notify.NewFactory(senders.Notifier))
	reg.Register(webhook.NewFactory())
	reg.Register(conditional.NewFactory())
	reg.Register(exitcampaign.NewFactory(store))
	reg.Register(changestage.NewFactory(store))
}
