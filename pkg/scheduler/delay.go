// Package scheduler computes when the next step execution of an enrollment
// becomes due.
package scheduler

import (
	"time"

	"github.com/evercrm/cadence/pkg/models"
)

// Business-hours window applied when a campaign opts in.
const (
	businessDayStart = 9  // 09:00 local
	businessDayEnd   = 17 // 17:00 local
)

// NextRunAt returns when the given step should fire, relative to the prior
// step's completion: completion + the step's delay, pushed forward into the
// campaign's business-hours window when the campaign requests it.
func NextRunAt(completedAt time.Time, step *models.CampaignStep, campaign *models.Campaign) time.Time {
	at := completedAt.Add(step.Delay())

	if campaign != nil && campaign.RespectBusinessHours {
		return nextBusinessWindow(at, campaign.Timezone)
	}

	return at
}

// nextBusinessWindow pushes t forward to the next weekday 09:00-17:00 window
// in the given timezone. A time already inside the window is unchanged.
func nextBusinessWindow(t time.Time, timezone string) time.Time {
	loc := time.UTC

	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		}
	}

	local := t.In(loc)

	for {
		switch {
		case local.Weekday() == time.Saturday || local.Weekday() == time.Sunday:
			local = startOfNextDay(local)
		case local.Hour() < businessDayStart:
			local = time.Date(local.Year(), local.Month(), local.Day(), businessDayStart, 0, 0, 0, loc)
		case local.Hour() >= businessDayEnd:
			local = startOfNextDay(local)
		default:
			return local
		}
	}
}

func startOfNextDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)

	return time.Date(next.Year(), next.Month(), next.Day(), businessDayStart, 0, 0, 0, t.Location())
}
