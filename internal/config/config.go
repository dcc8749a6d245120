package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageBigQuery = "bigquery"
	StorageMemory   = "memory"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueAMQP   = "amqp"
)

// Config holds application configuration.
type Config struct {
	AppName string `toml:"app_name"`
	Version string `toml:"app_version"`
	Debug   bool   `toml:"debug"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Storage  StorageConfig  `toml:"storage"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Queue    QueueConfig    `toml:"queue"`
	Notion   NotionConfig   `toml:"notion"`
	Export   ExportConfig   `toml:"export"`
	Schedule ScheduleConfig `toml:"schedule"`

	PersistConcurrency int      `toml:"persist_concurrency"`
	ShutdownTimeout    Duration `toml:"shutdown_timeout"`
}

// StorageConfig selects and tunes the ledger store.
type StorageConfig struct {
	Backend         string `toml:"backend"`
	DatabaseURL     string `toml:"database_url"`
	PoolMin         int    `toml:"pool_min"`
	PoolMax         int    `toml:"pool_max"`
	SQLitePath      string `toml:"sqlite_path"`
	BigQueryProject string `toml:"bigquery_project"`
	BigQueryDataset string `toml:"bigquery_dataset"`
}

// GeminiConfig configures the extraction model.
type GeminiConfig struct {
	Model  string `toml:"model"`
	APIKey string `toml:"api_key"`
}

// QueueConfig selects the background job queue.
type QueueConfig struct {
	Backend  string `toml:"backend"`
	Buffer   int    `toml:"buffer"`
	Workers  int    `toml:"workers"`
	AMQPURL  string `toml:"amqp_url"`
	Exchange string `toml:"amqp_exchange"`
	Queue    string `toml:"amqp_queue"`

	// JobRetention caps finished job records kept in memory; 0 keeps all.
	JobRetention int `toml:"job_retention"`
}

// NotionConfig configures the Notion mirror.
type NotionConfig struct {
	Token      string `toml:"token"`
	DatabaseID string `toml:"database_id"`
}

// ExportConfig configures CSV statement exports.
type ExportConfig struct {
	Bucket string `toml:"bucket"`
}

// ScheduleConfig holds cron specs (with seconds); empty disables a job.
type ScheduleConfig struct {
	NotionSync string `toml:"notion_sync"`
	Export     string `toml:"export"`
}

// Duration lets TOML files use "30s" style values.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppName:   "Ledger Balance Service",
		Version:   "1.0.0",
		Host:      "0.0.0.0",
		Port:      8081,
		LogLevel:  "info",
		LogFormat: "console",
		Storage: StorageConfig{
			Backend:         StorageSQLite,
			PoolMin:         1,
			PoolMax:         10,
			SQLitePath:      "data/ledger.db",
			BigQueryDataset: "finance",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Queue: QueueConfig{
			Backend:  QueueMemory,
			Buffer:   100,
			Workers:  5,
			Exchange: "ledger",
			Queue:    "ledger.messages",

			JobRetention: 1000,
		},
		PersistConcurrency: 4,
		ShutdownTimeout:    Duration{30 * time.Second},
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by LEDGER_CONFIG_FILE, a .env file if present, and finally the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("LEDGER_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.AppName = getEnv("APP_NAME", c.AppName)
	c.Version = getEnv("APP_VERSION", c.Version)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.DatabaseURL = getEnv("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.PoolMin = getEnvAsInt("DB_POOL_MIN", c.Storage.PoolMin)
	c.Storage.PoolMax = getEnvAsInt("DB_POOL_MAX", c.Storage.PoolMax)
	c.Storage.SQLitePath = getEnv("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.BigQueryProject = getEnv("BIGQUERY_PROJECT", c.Storage.BigQueryProject)
	c.Storage.BigQueryDataset = getEnv("BIGQUERY_DATASET", c.Storage.BigQueryDataset)

	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.APIKey = getEnv("GOOGLE_API_KEY", c.Gemini.APIKey)

	c.Queue.Backend = strings.ToLower(getEnv("QUEUE_BACKEND", c.Queue.Backend))
	c.Queue.Buffer = getEnvAsInt("QUEUE_BUFFER", c.Queue.Buffer)
	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.AMQPURL = getEnv("AMQP_URL", c.Queue.AMQPURL)
	c.Queue.Exchange = getEnv("AMQP_EXCHANGE", c.Queue.Exchange)
	c.Queue.Queue = getEnv("AMQP_QUEUE", c.Queue.Queue)
	c.Queue.JobRetention = getEnvAsInt("JOB_RETENTION", c.Queue.JobRetention)

	c.Notion.Token = getEnv("NOTION_TOKEN", c.Notion.Token)
	c.Notion.DatabaseID = getEnv("NOTION_DATABASE_ID", c.Notion.DatabaseID)

	c.Export.Bucket = getEnv("EXPORT_BUCKET", c.Export.Bucket)

	c.Schedule.NotionSync = getEnv("SCHEDULE_NOTION_SYNC", c.Schedule.NotionSync)
	c.Schedule.Export = getEnv("SCHEDULE_EXPORT", c.Schedule.Export)

	c.PersistConcurrency = getEnvAsInt("PERSIST_CONCURRENCY", c.PersistConcurrency)
	c.ShutdownTimeout.Duration = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout.Duration)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Storage.Backend {
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
		if c.Storage.PoolMin < 0 || c.Storage.PoolMax < 1 || c.Storage.PoolMin > c.Storage.PoolMax {
			errs = append(errs, fmt.Errorf("invalid pool size min=%d max=%d", c.Storage.PoolMin, c.Storage.PoolMax))
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case StorageBigQuery:
		if c.Storage.BigQueryProject == "" {
			errs = append(errs, errors.New("BIGQUERY_PROJECT is required for the bigquery backend"))
		}
		if c.Storage.BigQueryDataset == "" {
			errs = append(errs, errors.New("BIGQUERY_DATASET is required for the bigquery backend"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.Queue.Backend {
	case QueueMemory:
	case QueueAMQP:
		if c.Queue.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the amqp queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.Queue.Backend))
	}

	if c.Queue.Workers < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_WORKERS must be at least 1, got %d", c.Queue.Workers))
	}
	if c.Queue.Buffer < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_BUFFER must be at least 1, got %d", c.Queue.Buffer))
	}
	if c.PersistConcurrency < 1 {
		errs = append(errs, fmt.Errorf("PERSIST_CONCURRENCY must be at least 1, got %d", c.PersistConcurrency))
	}
	if c.ShutdownTimeout.Duration <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NotionEnabled reports whether Notion credentials are present.
func (c *Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
