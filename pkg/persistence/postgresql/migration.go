package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE applications (
				id VARCHAR(64) PRIMARY KEY,
				service_code VARCHAR(255) NOT NULL,
				service_name VARCHAR(255) NOT NULL,
				applicant_name VARCHAR(255) NOT NULL,
				workflow_status VARCHAR(32) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_applications_workflow_status ON applications(workflow_status);
			CREATE INDEX idx_applications_created_at ON applications(created_at);

			CREATE TABLE required_documents (
				id VARCHAR(64) PRIMARY KEY,
				application_id VARCHAR(64) NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
				position INT NOT NULL,
				document_name VARCHAR(255) NOT NULL,
				document_name_local VARCHAR(255) NOT NULL DEFAULT '',
				document_type VARCHAR(100) NOT NULL,
				is_mandatory BOOLEAN NOT NULL DEFAULT false,
				accepted_formats TEXT[] NOT NULL DEFAULT '{}',
				max_size_mb DOUBLE PRECISION NOT NULL DEFAULT 0,
				description TEXT NOT NULL DEFAULT '',
				sample_url TEXT NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'uploaded', 'verified', 'rejected')),
				file_url TEXT,
				original_filename TEXT,
				file_type VARCHAR(100),
				file_size_bytes BIGINT,
				rejection_reason TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_required_documents_application_id ON required_documents(application_id);

			CREATE TABLE workflow_steps (
				id VARCHAR(64) PRIMARY KEY,
				application_id VARCHAR(64) NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
				step_number INT NOT NULL,
				step_name VARCHAR(255) NOT NULL,
				step_name_local VARCHAR(255) NOT NULL DEFAULT '',
				step_type VARCHAR(32) NOT NULL,
				step_description TEXT NOT NULL DEFAULT '',
				assigned_role VARCHAR(100) NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'skipped')),
				can_send_back BOOLEAN NOT NULL DEFAULT false,
				can_reject BOOLEAN NOT NULL DEFAULT false,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				completed_by_name VARCHAR(255) NOT NULL DEFAULT '',
				sla_hours INT NOT NULL DEFAULT 0,
				sla_deadline TIMESTAMP WITH TIME ZONE,
				sla_breached BOOLEAN NOT NULL DEFAULT false,
				remarks TEXT NOT NULL DEFAULT '',
				UNIQUE (application_id, step_number)
			);

			CREATE INDEX idx_workflow_steps_application_id ON workflow_steps(application_id);
			CREATE INDEX idx_workflow_steps_status ON workflow_steps(status);
		`,
	}
}
