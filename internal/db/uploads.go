package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

type UploadFilter struct {
	// UploaderEmail restricts the listing to one uploader when set.
	UploaderEmail string
}

type UploadRepository interface {
	CreateUpload(ctx context.Context, upload *model.FileUpload) error
	MarkUploadStored(ctx context.Context, id string) error
	DeleteUpload(ctx context.Context, id string) error
	GetUpload(ctx context.Context, id string) (*model.FileUpload, error)
	ListUploads(ctx context.Context, filter UploadFilter, limit, offset int) ([]model.FileUpload, int, error)
	MarkTimedOut(ctx context.Context, createdBefore time.Time, excludeDataset string) (int64, error)
	ListPendingUploads(ctx context.Context, createdBefore time.Time) ([]model.FileUpload, error)
	UpdateDQResult(ctx context.Context, id string, status model.DQStatus, reportPath, fullPath *string) error
}

type uploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) UploadRepository {
	return &uploadRepository{db: db}
}

const uploadColumns = `id, created, uploader_id, uploader_email, country, dataset, source, original_filename,
	upload_path, column_to_schema_mapping, column_license, description, dq_status, dq_report_path, dq_full_path, state`

func (r *uploadRepository) CreateUpload(ctx context.Context, u *model.FileUpload) error {
	query := `INSERT INTO file_uploads (` + uploadColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.CreatedAt.UTC(), u.UploaderID, u.UploaderEmail, u.Country, u.Dataset, u.Source,
		u.OriginalFilename, u.UploadPath, u.ColumnToSchemaMapping, u.ColumnLicense, u.Description,
		u.DQStatus, u.DQReportPath, u.DQFullPath, u.State)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", u.ID, err)
	}
	return nil
}

func (r *uploadRepository) MarkUploadStored(ctx context.Context, id string) error {
	query := `UPDATE file_uploads SET state = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, model.UploadStateStored, id)
	if err != nil {
		return err
	}
	return expectRow(res, "upload", id)
}

func (r *uploadRepository) DeleteUpload(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_uploads WHERE id = ?`, id)
	return err
}

func (r *uploadRepository) GetUpload(ctx context.Context, id string) (*model.FileUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM file_uploads WHERE id = ?`

	upload, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepository) ListUploads(ctx context.Context, filter UploadFilter, limit, offset int) ([]model.FileUpload, int, error) {
	where := `WHERE state = ?`
	args := []interface{}{model.UploadStateStored}
	if filter.UploaderEmail != "" {
		where += ` AND uploader_email = ?`
		args = append(args, filter.UploaderEmail)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_uploads `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + uploadColumns + ` FROM file_uploads ` + where + ` ORDER BY created DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	uploads := []model.FileUpload{}
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, 0, err
		}
		uploads = append(uploads, *upload)
	}

	return uploads, total, rows.Err()
}

func (r *uploadRepository) MarkTimedOut(ctx context.Context, createdBefore time.Time, excludeDataset string) (int64, error) {
	query := `UPDATE file_uploads SET dq_status = ?
			  WHERE created < ? AND dataset <> ? AND dq_status = ? AND dq_report_path IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		model.DQStatusTimeout, createdBefore.UTC(), excludeDataset, model.DQStatusInProgress)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *uploadRepository) ListPendingUploads(ctx context.Context, createdBefore time.Time) ([]model.FileUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM file_uploads WHERE state = ? AND created < ? ORDER BY created`

	rows, err := r.db.QueryContext(ctx, query, model.UploadStatePending, createdBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []model.FileUpload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}
	return uploads, rows.Err()
}

func (r *uploadRepository) UpdateDQResult(ctx context.Context, id string, status model.DQStatus, reportPath, fullPath *string) error {
	query := `UPDATE file_uploads SET dq_status = ?, dq_report_path = ?, dq_full_path = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, reportPath, fullPath, id)
	if err != nil {
		return err
	}
	return expectRow(res, "upload", id)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUpload(s scanner) (*model.FileUpload, error) {
	var u model.FileUpload
	err := s.Scan(&u.ID, &u.CreatedAt, &u.UploaderID, &u.UploaderEmail, &u.Country, &u.Dataset,
		&u.Source, &u.OriginalFilename, &u.UploadPath, &u.ColumnToSchemaMapping, &u.ColumnLicense,
		&u.Description, &u.DQStatus, &u.DQReportPath, &u.DQFullPath, &u.State)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, perrors.ErrNotFound)
	}
	return nil
}
