package schema

import (
	"context"
	"database/sql"
	"fmt"

	"ingestion-portal/internal/model"
	"ingestion-portal/pkg/errors"
)

// Source is the authoritative store of warehouse table definitions.
type Source interface {
	ListSchemas(ctx context.Context) ([]string, error)
	GetSchema(ctx context.Context, name string) (*model.Schema, error)
}

type warehouseSource struct {
	db     *sql.DB
	schema string
}

// NewWarehouseSource reads table definitions from information_schema for one database.
func NewWarehouseSource(db *sql.DB, schemaName string) Source {
	return &warehouseSource{db: db, schema: schemaName}
}

func (s *warehouseSource) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`,
		s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *warehouseSource) GetSchema(ctx context.Context, name string) (*model.Schema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_key, column_comment
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, s.schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", name, err)
	}
	defer rows.Close()

	schema := &model.Schema{Name: name, Columns: []model.SchemaColumn{}}
	for rows.Next() {
		var col model.SchemaColumn
		var nullable, key string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &key, &col.Description); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		col.PrimaryKey = key == "PRI"
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("schema %s: %w", name, errors.ErrNotFound)
	}
	return schema, nil
}
