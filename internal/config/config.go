package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Warehouse DatabaseConfig  `yaml:"warehouse"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Directory DirectoryConfig `yaml:"directory"`
	Auth      AuthConfig      `yaml:"auth"`
	Upload    UploadConfig    `yaml:"upload"`
	Approval  ApprovalConfig  `yaml:"approval"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
	WebURL  string `yaml:"web_url"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StaticDir       string        `yaml:"static_dir"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"`
	PoolSize          int    `yaml:"pool_size"`
	DQQueue           string `yaml:"dq_queue"`
	DQResultQueue     string `yaml:"dq_result_queue"`
	NotificationQueue string `yaml:"notification_queue"`
	DLQSuffix         string `yaml:"dlq_suffix"`
}

type CacheConfig struct {
	KeyPrefix  string        `yaml:"key_prefix"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

type StorageConfig struct {
	S3                     S3Config `yaml:"s3"`
	UploadsPrefix          string   `yaml:"uploads_prefix"`
	ApprovalRequestsPrefix string   `yaml:"approval_requests_prefix"`
	ApprovedRowsPrefix     string   `yaml:"approved_rows_prefix"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DirectoryConfig points at the Graph-style identity provider used for groups and users.
type DirectoryConfig struct {
	BaseURL       string        `yaml:"base_url"`
	TokenURL      string        `yaml:"token_url"`
	ClientID      string        `yaml:"client_id"`
	ClientSecret  string        `yaml:"client_secret"`
	Scope         string        `yaml:"scope"`
	Timeout       time.Duration `yaml:"timeout"`
	BatchSize     int           `yaml:"batch_size"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

type UploadConfig struct {
	MaxFileSize      int64         `yaml:"max_file_size"`
	TimeoutAfter     time.Duration `yaml:"timeout_after"`
	ReconcileGrace   time.Duration `yaml:"reconcile_grace"`
	DefaultPageSize  int           `yaml:"default_page_size"`
	MaxPageSize      int           `yaml:"max_page_size"`
	UnstructuredName string        `yaml:"unstructured_dataset"`
}

type ApprovalConfig struct {
	RowIDColumn     string `yaml:"row_id_column"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

type WorkersConfig struct {
	Pool      PoolWorkerConfig     `yaml:"pool"`
	Schedules ScheduleWorkerConfig `yaml:"schedules"`
}

type PoolWorkerConfig struct {
	Count int `yaml:"count"`
}

type ScheduleWorkerConfig struct {
	SchemaRefreshInterval time.Duration `yaml:"schema_refresh_interval"`
	TimeoutSweepInterval  time.Duration `yaml:"timeout_sweep_interval"`
	ReconcileInterval     time.Duration `yaml:"reconcile_interval"`
	RunOnStart            bool          `yaml:"run_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies environment overrides and defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Secrets are not expected to live in the YAML file in deployed environments.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_PASSWORD":       &c.Database.Password,
		"WAREHOUSE_PASSWORD":      &c.Warehouse.Password,
		"REDIS_PASSWORD":          &c.Redis.Password,
		"S3_ACCESS_KEY":           &c.Storage.S3.AccessKey,
		"S3_SECRET_KEY":           &c.Storage.S3.SecretKey,
		"DIRECTORY_CLIENT_SECRET": &c.Directory.ClientSecret,
		"AUTH_JWT_SECRET":         &c.Auth.JWTSecret,
	}
	for env, field := range overrides {
		if v, ok := os.LookupEnv(env); ok {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ingestion-portal"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	for _, db := range []*DatabaseConfig{&c.Database, &c.Warehouse} {
		if db.Charset == "" {
			db.Charset = "utf8mb4"
		}
		if db.Loc == "" {
			db.Loc = "UTC"
		}
		if db.MaxConnections == 0 {
			db.MaxConnections = 10
		}
		if db.MaxIdleConnections == 0 {
			db.MaxIdleConnections = 5
		}
		if db.ConnectionLifetime == 0 {
			db.ConnectionLifetime = time.Hour
		}
		db.ParseTime = true
	}
	if c.Redis.DQQueue == "" {
		c.Redis.DQQueue = "ingestion-portal:dq-jobs"
	}
	if c.Redis.DQResultQueue == "" {
		c.Redis.DQResultQueue = "ingestion-portal:dq-results"
	}
	if c.Redis.NotificationQueue == "" {
		c.Redis.NotificationQueue = "ingestion-portal:notifications"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "ingestion-portal"
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 10 * time.Minute
	}
	if c.Storage.UploadsPrefix == "" {
		c.Storage.UploadsPrefix = "raw/uploads"
	}
	if c.Storage.ApprovalRequestsPrefix == "" {
		c.Storage.ApprovalRequestsPrefix = "staging/pending-changes"
	}
	if c.Storage.ApprovedRowsPrefix == "" {
		c.Storage.ApprovedRowsPrefix = "staging/approved-row-ids"
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = 30 * time.Second
	}
	if c.Directory.BatchSize == 0 {
		c.Directory.BatchSize = 3
	}
	if c.Directory.RetryAttempts == 0 {
		c.Directory.RetryAttempts = 3
	}
	if c.Directory.RetryDelay == 0 {
		c.Directory.RetryDelay = time.Second
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Upload.TimeoutAfter == 0 {
		c.Upload.TimeoutAfter = time.Hour
	}
	if c.Upload.ReconcileGrace == 0 {
		c.Upload.ReconcileGrace = 15 * time.Minute
	}
	if c.Upload.DefaultPageSize == 0 {
		c.Upload.DefaultPageSize = 10
	}
	if c.Upload.MaxPageSize == 0 {
		c.Upload.MaxPageSize = 100
	}
	if c.Upload.UnstructuredName == "" {
		c.Upload.UnstructuredName = "unstructured"
	}
	if c.Approval.RowIDColumn == "" {
		c.Approval.RowIDColumn = "school_id_giga"
	}
	if c.Approval.DefaultPageSize == 0 {
		c.Approval.DefaultPageSize = 10
	}
	if c.Approval.MaxPageSize == 0 {
		c.Approval.MaxPageSize = 100
	}
	if c.Workers.Pool.Count == 0 {
		c.Workers.Pool.Count = 4
	}
	if c.Workers.Schedules.SchemaRefreshInterval == 0 {
		c.Workers.Schedules.SchemaRefreshInterval = 10 * time.Minute
	}
	if c.Workers.Schedules.TimeoutSweepInterval == 0 {
		c.Workers.Schedules.TimeoutSweepInterval = time.Hour
	}
	if c.Workers.Schedules.ReconcileInterval == 0 {
		c.Workers.Schedules.ReconcileInterval = time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports the first setting that would make the services unusable.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("invalid config: database host and name are required")
	}
	if c.Storage.S3.Bucket == "" {
		return fmt.Errorf("invalid config: storage.s3.bucket is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Upload.MaxFileSize < 0 {
		return fmt.Errorf("invalid config: upload.max_file_size must be positive")
	}
	if c.Upload.DefaultPageSize > c.Upload.MaxPageSize {
		return fmt.Errorf("invalid config: upload.default_page_size exceeds upload.max_page_size")
	}
	if c.Directory.BatchSize < 1 {
		return fmt.Errorf("invalid config: directory.batch_size must be at least 1")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid config: logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return c.Database.DSN()
}

func (c *Config) WarehouseDSN() string {
	return c.Warehouse.DSN()
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name, d.Charset, d.ParseTime, d.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
