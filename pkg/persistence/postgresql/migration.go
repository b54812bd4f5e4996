package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Templates: one canonical task list per session type. Task
			-- definitions travel as a JSONB document; the whole row is
			-- replaced on write so readers never see a partial template.
			CREATE TABLE timeline_templates (
				session_type VARCHAR(255) PRIMARY KEY,
				tasks JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Timelines: the per-session aggregate head. The primary key on
			-- session_id is the ownership constraint that makes generation
			-- idempotent under concurrent invocation.
			CREATE TABLE timelines (
				session_id VARCHAR(255) PRIMARY KEY,
				session_type VARCHAR(255) NOT NULL,
				session_date DATE NOT NULL,
				client_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE task_instances (
				id UUID PRIMARY KEY,
				session_id VARCHAR(255) NOT NULL REFERENCES timelines(session_id) ON DELETE CASCADE,
				task_name VARCHAR(255) NOT NULL,
				calculated_date DATE NOT NULL,
				adjusted_date DATE NOT NULL,
				offset_days INT NOT NULL,
				task_order INT NOT NULL,
				can_automate BOOLEAN NOT NULL DEFAULT FALSE,
				approval_required BOOLEAN NOT NULL DEFAULT FALSE,
				estimated_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
				requires_human BOOLEAN NOT NULL DEFAULT FALSE,
				can_batch BOOLEAN NOT NULL DEFAULT FALSE,
				is_completed BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMP WITH TIME ZONE,
				completed_by VARCHAR(255),
				automation_status VARCHAR(50) NOT NULL DEFAULT 'pending'
					CHECK (automation_status IN ('pending', 'pending_approval', 'completed')),
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (session_id, task_order)
			);

			CREATE INDEX idx_task_instances_session ON task_instances(session_id);
			CREATE INDEX idx_task_instances_queue
				ON task_instances(adjusted_date, task_order)
				WHERE can_automate AND NOT is_completed;

			CREATE TABLE approval_requests (
				id UUID PRIMARY KEY,
				task_instance_id UUID NOT NULL REFERENCES task_instances(id) ON DELETE CASCADE,
				session_id VARCHAR(255) NOT NULL,
				generated_content TEXT NOT NULL DEFAULT '',
				content_type VARCHAR(100) NOT NULL,
				metadata JSONB,
				approval_status VARCHAR(50) NOT NULL DEFAULT 'pending_review'
					CHECK (approval_status IN ('pending_review', 'approved', 'rejected')),
				submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
				resolved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_approval_requests_task ON approval_requests(task_instance_id);

			-- At most one open request per task; superseding writes resolve
			-- the prior request first.
			CREATE UNIQUE INDEX uniq_open_approval_per_task
				ON approval_requests(task_instance_id)
				WHERE approval_status = 'pending_review';
		`,
	}
}
