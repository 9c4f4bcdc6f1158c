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

type ApprovalRepository interface {
	GetApprovalRequest(ctx context.Context, country, dataset string) (*model.ApprovalRequest, error)
	ListApprovalRequests(ctx context.Context) ([]model.ApprovalRequest, error)
	SetApprovalEnabled(ctx context.Context, country, dataset string, enabled bool) (*model.ApprovalRequest, error)
	RecordApproval(ctx context.Context, country, dataset, approverID, approverEmail string, at time.Time) (*model.ApprovalRequest, error)
	ListApprovalAuditLog(ctx context.Context, approvalRequestID int64) ([]model.ApprovalRequestAuditLog, error)
}

type approvalRepository struct {
	db *sql.DB
}

func NewApprovalRepository(db *sql.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

const approvalColumns = `id, country, dataset, enabled, last_approved_by_id, last_approved_by_email, last_approved_at`

func (r *approvalRepository) GetApprovalRequest(ctx context.Context, country, dataset string) (*model.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE country = ? AND dataset = ?`
	req, err := scanApproval(r.db.QueryRowContext(ctx, query, country, dataset))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval request %s/%s: %w", country, dataset, perrors.ErrNotFound)
	}
	return req, err
}

func (r *approvalRepository) ListApprovalRequests(ctx context.Context) ([]model.ApprovalRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests ORDER BY country, dataset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []model.ApprovalRequest
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *approvalRepository) SetApprovalEnabled(ctx context.Context, country, dataset string, enabled bool) (*model.ApprovalRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := ensureApprovalRequest(ctx, tx, country, dataset)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE approval_requests SET enabled = ? WHERE id = ?`, enabled, id); err != nil {
		return nil, err
	}

	req, err := scanApproval(tx.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	return req, tx.Commit()
}

// RecordApproval disables the request, stamps the approver and appends to the audit log atomically.
func (r *approvalRepository) RecordApproval(ctx context.Context, country, dataset, approverID, approverEmail string, at time.Time) (*model.ApprovalRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := ensureApprovalRequest(ctx, tx, country, dataset)
	if err != nil {
		return nil, err
	}

	update := `UPDATE approval_requests
			   SET enabled = ?, last_approved_by_id = ?, last_approved_by_email = ?, last_approved_at = ?
			   WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, false, approverID, approverEmail, at.UTC(), id); err != nil {
		return nil, err
	}

	insert := `INSERT INTO approval_request_audit_logs (approval_request_id, approved_by_id, approved_by_email, approved_at)
			   VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, id, approverID, approverEmail, at.UTC()); err != nil {
		return nil, err
	}

	req, err := scanApproval(tx.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	return req, tx.Commit()
}

func (r *approvalRepository) ListApprovalAuditLog(ctx context.Context, approvalRequestID int64) ([]model.ApprovalRequestAuditLog, error) {
	query := `SELECT id, approval_request_id, approved_by_id, approved_by_email, approved_at
			  FROM approval_request_audit_logs WHERE approval_request_id = ? ORDER BY approved_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, approvalRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.ApprovalRequestAuditLog
	for rows.Next() {
		var l model.ApprovalRequestAuditLog
		if err := rows.Scan(&l.ID, &l.ApprovalRequestID, &l.ApprovedByID, &l.ApprovedByEmail, &l.ApprovedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Approval requests are created lazily the first time a country/dataset pair is touched.
func ensureApprovalRequest(ctx context.Context, tx *sql.Tx, country, dataset string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM approval_requests WHERE country = ? AND dataset = ?`, country, dataset).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO approval_requests (country, dataset, enabled) VALUES (?, ?, ?)`, country, dataset, false)
	if err != nil {
		return 0, fmt.Errorf("create approval request %s/%s: %w", country, dataset, err)
	}
	return res.LastInsertId()
}

func scanApproval(s scanner) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := s.Scan(&req.ID, &req.Country, &req.Dataset, &req.Enabled,
		&req.LastApprovedByID, &req.LastApprovedByEmail, &req.LastApprovedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
