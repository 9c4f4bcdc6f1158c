package db

import (
	"context"
	"database/sql"
	"time"

	"ingestion-portal/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

func NewConnection(cfg *config.Config) (*sql.DB, error) {
	return Open(cfg.Database)
}

// Open connects with the pool settings of one database section of the config.
func Open(dbCfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbCfg.MaxConnections)
	db.SetMaxIdleConns(dbCfg.MaxIdleConnections)
	db.SetConnMaxLifetime(dbCfg.ConnectionLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
