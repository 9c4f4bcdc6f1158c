package model

import "time"

type ApprovalRequest struct {
	ID                  int64      `json:"id" db:"id"`
	Country             string     `json:"country" db:"country"`
	Dataset             string     `json:"dataset" db:"dataset"`
	Enabled             bool       `json:"enabled" db:"enabled"`
	LastApprovedByID    *string    `json:"last_approved_by_id,omitempty" db:"last_approved_by_id"`
	LastApprovedByEmail *string    `json:"last_approved_by_email,omitempty" db:"last_approved_by_email"`
	LastApprovedAt      *time.Time `json:"last_approved_at,omitempty" db:"last_approved_at"`
}

type ApprovalRequestAuditLog struct {
	ID                int64     `json:"id" db:"id"`
	ApprovalRequestID int64     `json:"approval_request_id" db:"approval_request_id"`
	ApprovedByID      string    `json:"approved_by_id" db:"approved_by_id"`
	ApprovedByEmail   string    `json:"approved_by_email" db:"approved_by_email"`
	ApprovedAt        time.Time `json:"approved_at" db:"approved_at"`
}
