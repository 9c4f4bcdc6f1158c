package db

// SchemaSQL is the MySQL schema the repositories are written against.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS file_uploads (
	id VARCHAR(36) PRIMARY KEY,
	created DATETIME NOT NULL,
	uploader_id VARCHAR(64) NOT NULL,
	uploader_email VARCHAR(255) NOT NULL,
	country VARCHAR(3) NOT NULL,
	dataset VARCHAR(64) NOT NULL,
	source VARCHAR(255) NULL,
	original_filename VARCHAR(255) NOT NULL,
	upload_path VARCHAR(512) NOT NULL,
	column_to_schema_mapping JSON NOT NULL,
	column_license JSON NOT NULL,
	description TEXT NOT NULL,
	dq_status VARCHAR(16) NOT NULL,
	dq_report_path VARCHAR(512) NULL,
	dq_full_path VARCHAR(512) NULL,
	state VARCHAR(16) NOT NULL,
	INDEX idx_file_uploads_created (created),
	INDEX idx_file_uploads_dq_status (dq_status),
	INDEX idx_file_uploads_uploader_email (uploader_email)
);

CREATE TABLE IF NOT EXISTS approval_requests (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	country VARCHAR(3) NOT NULL,
	dataset VARCHAR(64) NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT FALSE,
	last_approved_by_id VARCHAR(64) NULL,
	last_approved_by_email VARCHAR(255) NULL,
	last_approved_at DATETIME NULL,
	UNIQUE KEY uq_approval_requests_country_dataset (country, dataset)
);

CREATE TABLE IF NOT EXISTS approval_request_audit_logs (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	approval_request_id BIGINT NOT NULL,
	approved_by_id VARCHAR(64) NOT NULL,
	approved_by_email VARCHAR(255) NOT NULL,
	approved_at DATETIME NOT NULL,
	FOREIGN KEY (approval_request_id) REFERENCES approval_requests(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	given_name VARCHAR(255) NOT NULL DEFAULT '',
	surname VARCHAR(255) NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS roles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_roles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	role_id BIGINT NOT NULL,
	UNIQUE KEY uq_user_roles (user_id, role_id),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS qos_school_lists (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	country VARCHAR(3) NOT NULL,
	user_id VARCHAR(64) NOT NULL,
	user_email VARCHAR(255) NOT NULL,
	api_config JSON NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS qos_school_connectivity (
	id VARCHAR(36) PRIMARY KEY,
	school_list_id VARCHAR(36) NOT NULL UNIQUE,
	school_id_send VARCHAR(255) NOT NULL,
	ingestion_frequency_minutes INT NOT NULL,
	api_config JSON NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (school_list_id) REFERENCES qos_school_lists(id) ON DELETE CASCADE
);
`
