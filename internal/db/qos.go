package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

type QoSRepository interface {
	ListSchoolLists(ctx context.Context, limit, offset int) ([]model.SchoolList, int, error)
	GetSchoolList(ctx context.Context, id string) (*model.SchoolList, error)
	CreateSchoolList(ctx context.Context, list *model.SchoolList) error
	UpdateSchoolList(ctx context.Context, list *model.SchoolList) error
	GetSchoolConnectivity(ctx context.Context, schoolListID string) (*model.SchoolConnectivity, error)
	UpsertSchoolConnectivity(ctx context.Context, conn *model.SchoolConnectivity) error
}

type qosRepository struct {
	db *sql.DB
}

func NewQoSRepository(db *sql.DB) QoSRepository {
	return &qosRepository{db: db}
}

const schoolListColumns = `id, name, country, user_id, user_email, api_config, created_at, updated_at`

func (r *qosRepository) ListSchoolLists(ctx context.Context, limit, offset int) ([]model.SchoolList, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qos_school_lists`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + schoolListColumns + ` FROM qos_school_lists ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	lists := []model.SchoolList{}
	for rows.Next() {
		list, err := scanSchoolList(rows)
		if err != nil {
			return nil, 0, err
		}
		lists = append(lists, *list)
	}
	return lists, total, rows.Err()
}

func (r *qosRepository) GetSchoolList(ctx context.Context, id string) (*model.SchoolList, error) {
	list, err := scanSchoolList(r.db.QueryRowContext(ctx, `SELECT `+schoolListColumns+` FROM qos_school_lists WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("school list %s: %w", id, perrors.ErrNotFound)
	}
	return list, err
}

func (r *qosRepository) CreateSchoolList(ctx context.Context, l *model.SchoolList) error {
	query := `INSERT INTO qos_school_lists (` + schoolListColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Name, l.Country, l.UserID, l.UserEmail,
		datatypes.NewJSONType(l.Config), l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert school list %s: %w", l.ID, err)
	}
	return nil
}

func (r *qosRepository) UpdateSchoolList(ctx context.Context, l *model.SchoolList) error {
	query := `UPDATE qos_school_lists SET name = ?, country = ?, api_config = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, l.Name, l.Country, datatypes.NewJSONType(l.Config), l.UpdatedAt.UTC(), l.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "school list", l.ID)
}

const connectivityColumns = `id, school_list_id, school_id_send, ingestion_frequency_minutes, api_config, created_at, updated_at`

func (r *qosRepository) GetSchoolConnectivity(ctx context.Context, schoolListID string) (*model.SchoolConnectivity, error) {
	query := `SELECT ` + connectivityColumns + ` FROM qos_school_connectivity WHERE school_list_id = ?`

	var c model.SchoolConnectivity
	var cfg datatypes.JSONType[model.APIConfiguration]
	err := r.db.QueryRowContext(ctx, query, schoolListID).
		Scan(&c.ID, &c.SchoolListID, &c.SchoolIDSend, &c.IngestionFrequencyMinutes, &cfg, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("connectivity for school list %s: %w", schoolListID, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.Config = cfg.Data()
	return &c, nil
}

// UpsertSchoolConnectivity keeps one connectivity row per school list. The row's ID and
// CreatedAt are preserved on update and written back into conn.
func (r *qosRepository) UpsertSchoolConnectivity(ctx context.Context, c *model.SchoolConnectivity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingID string
	var createdAt sql.NullTime
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM qos_school_connectivity WHERE school_list_id = ?`, c.SchoolListID).
		Scan(&existingID, &createdAt)

	switch {
	case err == nil:
		c.ID = existingID
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		update := `UPDATE qos_school_connectivity
				   SET school_id_send = ?, ingestion_frequency_minutes = ?, api_config = ?, updated_at = ?
				   WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, c.SchoolIDSend, c.IngestionFrequencyMinutes,
			datatypes.NewJSONType(c.Config), c.UpdatedAt.UTC(), c.ID); err != nil {
			return err
		}
	case errors.Is(err, sql.ErrNoRows):
		insert := `INSERT INTO qos_school_connectivity (` + connectivityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert, c.ID, c.SchoolListID, c.SchoolIDSend, c.IngestionFrequencyMinutes,
			datatypes.NewJSONType(c.Config), c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
			return err
		}
	default:
		return err
	}

	return tx.Commit()
}

func scanSchoolList(s scanner) (*model.SchoolList, error) {
	var l model.SchoolList
	var cfg datatypes.JSONType[model.APIConfiguration]
	if err := s.Scan(&l.ID, &l.Name, &l.Country, &l.UserID, &l.UserEmail, &cfg, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Config = cfg.Data()
	return &l, nil
}
