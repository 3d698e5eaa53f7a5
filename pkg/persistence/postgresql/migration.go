package postgresql

// migrations returns the ordered schema migrations for the campaign store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS campaigns (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'draft',
				enrollment_policy TEXT NOT NULL DEFAULT 'automatic',
				enrollment_cap INTEGER NOT NULL DEFAULT 0,
				allow_reenrollment BOOLEAN NOT NULL DEFAULT FALSE,
				reenroll_cooldown_days INTEGER NOT NULL DEFAULT 0,
				respect_business_hours BOOLEAN NOT NULL DEFAULT FALSE,
				timezone TEXT NOT NULL DEFAULT '',
				enrolled_count BIGINT NOT NULL DEFAULT 0,
				completed_count BIGINT NOT NULL DEFAULT 0,
				revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_campaigns_tenant_status
				ON campaigns (tenant_id, status)
				WHERE deleted_at IS NULL;

			CREATE TABLE IF NOT EXISTS campaign_triggers (
				id UUID PRIMARY KEY,
				campaign_id UUID NOT NULL REFERENCES campaigns(id),
				tenant_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				config JSONB NOT NULL DEFAULT '{}',
				conditions JSONB,
				priority INTEGER NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_triggers_tenant_kind
				ON campaign_triggers (tenant_id, kind)
				WHERE active;

			CREATE TABLE IF NOT EXISTS campaign_steps (
				id UUID PRIMARY KEY,
				campaign_id UUID NOT NULL REFERENCES campaigns(id),
				step_order INTEGER NOT NULL,
				kind TEXT NOT NULL,
				config JSONB NOT NULL DEFAULT '{}',
				delay_value INTEGER NOT NULL DEFAULT 0,
				delay_unit TEXT NOT NULL DEFAULT 'hours',
				true_step_id UUID,
				false_step_id UUID,
				executed_count BIGINT NOT NULL DEFAULT 0,
				succeeded_count BIGINT NOT NULL DEFAULT 0,
				failed_count BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (campaign_id, step_order)
			);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS campaign_enrollments (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				campaign_id UUID NOT NULL REFERENCES campaigns(id),
				contact_id UUID NOT NULL,
				deal_id UUID,
				status TEXT NOT NULL DEFAULT 'active',
				source TEXT NOT NULL DEFAULT 'automatic',
				current_step_id UUID,
				current_step_order INTEGER NOT NULL DEFAULT 0,
				steps_completed BIGINT NOT NULL DEFAULT 0,
				steps_failed BIGINT NOT NULL DEFAULT 0,
				emails_sent BIGINT NOT NULL DEFAULT 0,
				sms_sent BIGINT NOT NULL DEFAULT 0,
				goal_achieved BOOLEAN NOT NULL DEFAULT FALSE,
				exit_reason TEXT NOT NULL DEFAULT '',
				metadata JSONB,
				enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				last_step_executed_at TIMESTAMP WITH TIME ZONE,
				next_step_scheduled_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				exited_at TIMESTAMP WITH TIME ZONE
			);

			-- At most one live enrollment per (campaign, contact). This is
			-- the hard guard behind the enroller's advisory check.
			CREATE UNIQUE INDEX IF NOT EXISTS ux_enrollments_live
				ON campaign_enrollments (campaign_id, contact_id)
				WHERE status IN ('active', 'paused');

			CREATE INDEX IF NOT EXISTS idx_enrollments_contact
				ON campaign_enrollments (tenant_id, contact_id)
				WHERE status = 'active';

			CREATE TABLE IF NOT EXISTS campaign_step_executions (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				campaign_id UUID NOT NULL,
				enrollment_id UUID NOT NULL REFERENCES campaign_enrollments(id),
				step_id UUID NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				result JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				opened_at TIMESTAMP WITH TIME ZONE,
				clicked_at TIMESTAMP WITH TIME ZONE,
				replied_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_executions_due
				ON campaign_step_executions (scheduled_at)
				WHERE status = 'pending';
		`,
		3: `
			CREATE TABLE IF NOT EXISTS contacts (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				tags JSONB NOT NULL DEFAULT '[]',
				fields JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS deals (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				contact_id UUID,
				pipeline TEXT NOT NULL DEFAULT '',
				stage TEXT NOT NULL DEFAULT '',
				fields JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS contact_tasks (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				contact_id UUID NOT NULL,
				assignee_id UUID,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				due_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
