package model

import "time"

type DQJob struct {
	UploadID   string `json:"upload_id"`
	UploadPath string `json:"upload_path"`
	Dataset    string `json:"dataset"`
	Country    string `json:"country"`
}

type NotificationJob struct {
	Template   string            `json:"template"`
	Recipients []string          `json:"recipients"`
	Data       map[string]string `json:"data"`
}

type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

type ApproveRequest struct {
	Subpath      string   `json:"subpath" binding:"required"`
	ApprovedRows []string `json:"approved_rows"`
}

type SetApprovalEnabledRequest struct {
	Country string `json:"country" binding:"required"`
	Dataset string `json:"dataset" binding:"required"`
	Enabled bool   `json:"enabled"`
}

type UpdateUserRolesRequest struct {
	Roles []string `json:"roles"`
}

type CreateRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateGroupRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
}

type UpdateGroupRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type AddGroupMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

type ModifyUserGroupsRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// ChangeSetSummary is one entry of the approval request listing.
type ChangeSetSummary struct {
	Country      string    `json:"country"`
	CountryKey   string    `json:"country_key"`
	Dataset      string    `json:"dataset"`
	Subpath      string    `json:"subpath"`
	LastModified time.Time `json:"last_modified"`
	RowsCount    int       `json:"rows_count"`
	RowsAdded    int       `json:"rows_added"`
	RowsUpdated  int       `json:"rows_updated"`
	RowsDeleted  int       `json:"rows_deleted"`
	Enabled      bool      `json:"enabled"`
}

type ChangeSetInfo struct {
	Country     string `json:"country"`
	Dataset     string `json:"dataset"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	TotalCount  int    `json:"total_count"`
	RowsAdded   int    `json:"rows_added"`
	RowsUpdated int    `json:"rows_updated"`
	RowsDeleted int    `json:"rows_deleted"`
}
