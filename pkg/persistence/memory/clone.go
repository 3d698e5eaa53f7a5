package memory

import "github.com/evercrm/cadence/pkg/models"

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}

	out := make([]string, len(s))
	copy(out, s)

	return out
}

func cloneCampaign(c *models.Campaign) *models.Campaign {
	out := *c

	out.Triggers = make([]*models.CampaignTrigger, 0, len(c.Triggers))
	for _, trigger := range c.Triggers {
		out.Triggers = append(out.Triggers, cloneTrigger(trigger))
	}

	out.Steps = make([]*models.CampaignStep, 0, len(c.Steps))
	for _, step := range c.Steps {
		out.Steps = append(out.Steps, cloneStep(step))
	}

	return &out
}

func cloneTrigger(t *models.CampaignTrigger) *models.CampaignTrigger {
	out := *t
	out.Config = cloneMap(t.Config)
	out.Conditions = cloneMap(t.Conditions)

	return &out
}

func cloneStep(s *models.CampaignStep) *models.CampaignStep {
	out := *s
	out.Config = cloneMap(s.Config)

	return &out
}

func cloneEnrollment(e *models.CampaignEnrollment) *models.CampaignEnrollment {
	out := *e
	out.Metadata = cloneMap(e.Metadata)

	return &out
}

func cloneExecution(x *models.CampaignStepExecution) *models.CampaignStepExecution {
	out := *x
	out.Result = cloneMap(x.Result)

	return &out
}

func cloneContact(c *models.Contact) *models.Contact {
	out := *c
	out.Tags = cloneStrings(c.Tags)
	out.Fields = cloneMap(c.Fields)

	return &out
}

func cloneDeal(d *models.Deal) *models.Deal {
	out := *d
	out.Fields = cloneMap(d.Fields)

	return &out
}

func cloneTask(t *models.ContactTask) *models.ContactTask {
	out := *t

	return &out
}
