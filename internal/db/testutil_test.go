package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ingestion-portal/internal/model"
)

// sqliteSchema mirrors SchemaSQL in a dialect the in-memory test database accepts.
const sqliteSchema = `
CREATE TABLE file_uploads (
	id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	uploader_id TEXT NOT NULL,
	uploader_email TEXT NOT NULL,
	country TEXT NOT NULL,
	dataset TEXT NOT NULL,
	source TEXT NULL,
	original_filename TEXT NOT NULL,
	upload_path TEXT NOT NULL,
	column_to_schema_mapping TEXT NOT NULL,
	column_license TEXT NOT NULL,
	description TEXT NOT NULL,
	dq_status TEXT NOT NULL,
	dq_report_path TEXT NULL,
	dq_full_path TEXT NULL,
	state TEXT NOT NULL
);

CREATE TABLE approval_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	country TEXT NOT NULL,
	dataset TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 0,
	last_approved_by_id TEXT NULL,
	last_approved_by_email TEXT NULL,
	last_approved_at DATETIME NULL,
	UNIQUE (country, dataset)
);

CREATE TABLE approval_request_audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	approval_request_id INTEGER NOT NULL REFERENCES approval_requests(id),
	approved_by_id TEXT NOT NULL,
	approved_by_email TEXT NOT NULL,
	approved_at DATETIME NOT NULL
);

CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	given_name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE roles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE user_roles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	role_id INTEGER NOT NULL REFERENCES roles(id),
	UNIQUE (user_id, role_id)
);

CREATE TABLE qos_school_lists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	country TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_email TEXT NOT NULL,
	api_config TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE qos_school_connectivity (
	id TEXT PRIMARY KEY,
	school_list_id TEXT NOT NULL UNIQUE REFERENCES qos_school_lists(id),
	school_id_send TEXT NOT NULL,
	ingestion_frequency_minutes INTEGER NOT NULL,
	api_config TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// setupTestDB opens a fresh in-memory database. A single connection keeps every
// statement on the same in-memory instance.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(sqliteSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func seedUpload(t *testing.T, repo UploadRepository, id, dataset string, status model.DQStatus, state model.UploadState, created time.Time) *model.FileUpload {
	t.Helper()
	u := &model.FileUpload{
		ID:                    id,
		UploaderID:            "user-1",
		UploaderEmail:         "uploader@example.org",
		Country:               "KEN",
		Dataset:               dataset,
		OriginalFilename:      "schools.csv",
		UploadPath:            "raw/uploads/" + dataset + "/KEN/" + id + ".csv",
		ColumnToSchemaMapping: map[string]interface{}{"school_name": "name"},
		ColumnLicense:         map[string]interface{}{"school_name": "CC-BY-4.0"},
		DQStatus:              status,
		State:                 state,
		CreatedAt:             created,
	}
	if err := repo.CreateUpload(context.Background(), u); err != nil {
		t.Fatalf("failed to seed upload: %v", err)
	}
	return u
}

func seedRole(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO roles (name) VALUES (?)", name); err != nil {
		t.Fatalf("failed to seed role: %v", err)
	}
}
