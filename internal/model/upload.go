package model

import (
	"time"

	"gorm.io/datatypes"
)

type DQStatus string

const (
	DQStatusInProgress DQStatus = "IN_PROGRESS"
	DQStatusCompleted  DQStatus = "COMPLETED"
	DQStatusError      DQStatus = "ERROR"
	DQStatusTimeout    DQStatus = "TIMEOUT"
	DQStatusSkipped    DQStatus = "SKIPPED"
)

// UploadState tracks the two-step write of an upload: the row is PENDING until its blob is stored.
type UploadState string

const (
	UploadStatePending UploadState = "PENDING"
	UploadStateStored  UploadState = "STORED"
)

type FileUpload struct {
	ID                    string            `json:"id" db:"id"`
	UploaderID            string            `json:"uploader_id" db:"uploader_id"`
	UploaderEmail         string            `json:"uploader_email" db:"uploader_email"`
	Country               string            `json:"country" db:"country"`
	Dataset               string            `json:"dataset" db:"dataset"`
	Source                *string           `json:"source,omitempty" db:"source"`
	OriginalFilename      string            `json:"original_filename" db:"original_filename"`
	UploadPath            string            `json:"upload_path" db:"upload_path"`
	ColumnToSchemaMapping datatypes.JSONMap `json:"column_to_schema_mapping" db:"column_to_schema_mapping"`
	ColumnLicense         datatypes.JSONMap `json:"column_license" db:"column_license"`
	Description           string            `json:"description" db:"description"`
	DQStatus              DQStatus          `json:"dq_status" db:"dq_status"`
	DQReportPath          *string           `json:"dq_report_path,omitempty" db:"dq_report_path"`
	DQFullPath            *string           `json:"dq_full_path,omitempty" db:"dq_full_path"`
	State                 UploadState       `json:"-" db:"state"`
	CreatedAt             time.Time         `json:"created" db:"created"`
}

// DQResult is published by the out-of-process data-quality job.
type DQResult struct {
	UploadID   string   `json:"upload_id"`
	Status     DQStatus `json:"status"`
	ReportPath string   `json:"report_path,omitempty"`
	FullPath   string   `json:"full_path,omitempty"`
	Error      string   `json:"error,omitempty"`
}
