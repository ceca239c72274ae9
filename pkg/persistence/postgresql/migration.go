package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE records (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				owner_id VARCHAR(255),
				stage VARCHAR(255),
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_records_org_module ON records(org_id, module_id);
			CREATE INDEX idx_records_stage ON records(stage);

			CREATE TABLE stage_history (
				id UUID PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				record_id VARCHAR(255) NOT NULL REFERENCES records(id) ON DELETE CASCADE,
				from_stage VARCHAR(255) NOT NULL,
				to_stage VARCHAR(255) NOT NULL,
				reason TEXT,
				actor_id VARCHAR(255) NOT NULL,
				at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_stage_history_record ON stage_history(record_id, at);

			CREATE TABLE audit_log (
				id UUID PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				record_id VARCHAR(255) NOT NULL,
				action VARCHAR(100) NOT NULL,
				actor_id VARCHAR(255) NOT NULL,
				details JSONB,
				at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_log_record ON audit_log(record_id, at);

			CREATE TABLE blueprints (
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				stages JSONB NOT NULL,
				transitions JSONB NOT NULL DEFAULT '[]',
				PRIMARY KEY (org_id, module_id)
			);

			CREATE TABLE validation_rules (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				trigger VARCHAR(50) NOT NULL,
				from_stage VARCHAR(255),
				to_stage VARCHAR(255),
				conditions JSONB NOT NULL DEFAULT '[]',
				rule_name VARCHAR(255) NOT NULL,
				rule_type VARCHAR(100),
				field VARCHAR(255),
				error_message TEXT NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true
			);

			CREATE INDEX idx_validation_rules_org_module ON validation_rules(org_id, module_id);

			CREATE TABLE approval_processes (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				trigger VARCHAR(50) NOT NULL,
				from_stage VARCHAR(255),
				to_stage VARCHAR(255),
				conditions JSONB NOT NULL DEFAULT '[]',
				enabled BOOLEAN NOT NULL DEFAULT true
			);

			CREATE INDEX idx_approval_processes_org_module ON approval_processes(org_id, module_id);

			CREATE TABLE approval_requests (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				record_id VARCHAR(255) NOT NULL,
				process_id VARCHAR(255),
				rule_id VARCHAR(255),
				trigger VARCHAR(50) NOT NULL,
				action_payload JSONB NOT NULL,
				context JSONB,
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				requested_by VARCHAR(255) NOT NULL,
				resolved_by VARCHAR(255),
				resolved_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_requests_org_status ON approval_requests(org_id, status);
			CREATE INDEX idx_approval_requests_record ON approval_requests(record_id);

			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_config JSONB,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				is_enabled BOOLEAN NOT NULL DEFAULT false,
				priority INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_org_module_trigger ON workflows(org_id, module_id, trigger_type);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			CREATE TABLE macros (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				module_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				actions JSONB NOT NULL DEFAULT '[]',
				allowed_roles JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_macros_org_module ON macros(org_id, module_id);

			CREATE TABLE automation_runs (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255),
				macro_id VARCHAR(255),
				record_id VARCHAR(255),
				trigger VARCHAR(50) NOT NULL,
				status VARCHAR(20) NOT NULL,
				actions_executed JSONB NOT NULL DEFAULT '[]',
				error TEXT,
				idempotency_key VARCHAR(255),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_automation_runs_org ON automation_runs(org_id, started_at);
			CREATE INDEX idx_automation_runs_workflow ON automation_runs(workflow_id);
			CREATE INDEX idx_automation_runs_idempotency ON automation_runs(idempotency_key);

			CREATE TABLE schedules (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				cron_expression VARCHAR(255) NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_schedules_due ON schedules(active, next_due_at);
		`,
	}
}
