package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
database:
  host: db
  port: 3306
  name: portal
storage:
  s3:
    bucket: giga
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Cache.DefaultTTL != 10*time.Minute {
		t.Errorf("Cache.DefaultTTL = %v, want %v", cfg.Cache.DefaultTTL, 10*time.Minute)
	}
	if cfg.Cache.KeyPrefix != "ingestion-portal" {
		t.Errorf("Cache.KeyPrefix = %q, want %q", cfg.Cache.KeyPrefix, "ingestion-portal")
	}
	if cfg.Directory.BatchSize != 3 {
		t.Errorf("Directory.BatchSize = %d, want %d", cfg.Directory.BatchSize, 3)
	}
	if cfg.Upload.TimeoutAfter != time.Hour {
		t.Errorf("Upload.TimeoutAfter = %v, want %v", cfg.Upload.TimeoutAfter, time.Hour)
	}
	if cfg.Workers.Schedules.SchemaRefreshInterval != 10*time.Minute {
		t.Errorf("SchemaRefreshInterval = %v, want %v", cfg.Workers.Schedules.SchemaRefreshInterval, 10*time.Minute)
	}
	if !cfg.Database.ParseTime {
		t.Errorf("Database.ParseTime = false, want true")
	}
}

func TestParse_OverrideDefaults(t *testing.T) {
	doc := minimalYAML + `
server:
  port: 9090
upload:
  max_file_size: 2048
cache:
  default_ttl: 1m30s
logging:
  level: debug
  format: console
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Upload.MaxFileSize != 2048 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 2048)
	}
	if cfg.Cache.DefaultTTL != 90*time.Second {
		t.Errorf("Cache.DefaultTTL = %v, want %v", cfg.Cache.DefaultTTL, 90*time.Second)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "console")
	}
}

func TestParse_EnvSecretsOverride(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("AUTH_JWT_SECRET", "jwt-from-env")

	doc := `
database:
  host: db
  name: portal
  password: from-file
storage:
  s3:
    bucket: giga
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Database.Password != "from-env" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "from-env")
	}
	if cfg.Auth.JWTSecret != "jwt-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "jwt-from-env")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing database", doc: "storage:\n  s3:\n    bucket: giga\n"},
		{name: "missing bucket", doc: "database:\n  host: db\n  name: portal\n"},
		{name: "bad port", doc: minimalYAML + "server:\n  port: 70000\n"},
		{name: "bad log format", doc: minimalYAML + "logging:\n  format: xml\n"},
		{name: "page size above max", doc: minimalYAML + "upload:\n  default_page_size: 500\n  max_page_size: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse() expected error")
			}
		})
	}
}

func TestLoad_FromConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.S3.Bucket != "giga" {
		t.Errorf("Storage.S3.Bucket = %q, want %q", cfg.Storage.S3.Bucket, "giga")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cfg.Database.User = "portal"
	cfg.Database.Password = "secret"

	want := "portal:secret@tcp(db:3306)/portal?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, want %q", got, want)
	}
}
