package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEDGER_CONFIG_FILE", "APP_NAME", "APP_VERSION", "DEBUG", "HOST", "PORT",
		"LOG_LEVEL", "LOG_FORMAT", "STORAGE_BACKEND", "DATABASE_URL", "DB_POOL_MIN",
		"DB_POOL_MAX", "SQLITE_PATH", "BIGQUERY_PROJECT", "BIGQUERY_DATASET",
		"GEMINI_MODEL", "GOOGLE_API_KEY", "QUEUE_BACKEND", "QUEUE_BUFFER",
		"QUEUE_WORKERS", "AMQP_URL", "AMQP_EXCHANGE", "AMQP_QUEUE", "NOTION_TOKEN",
		"NOTION_DATABASE_ID", "EXPORT_BUCKET", "SCHEDULE_NOTION_SYNC",
		"SCHEDULE_EXPORT", "PERSIST_CONCURRENCY", "SHUTDOWN_TIMEOUT", "JOB_RETENTION",
	} {
		t.Setenv(key, "")
	}
	// Keep godotenv from picking up a stray .env in the package directory.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Ledger Balance Service", cfg.AppName)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.Equal(t, "data/ledger.db", cfg.Storage.SQLitePath)
	assert.Equal(t, QueueMemory, cfg.Queue.Backend)
	assert.Equal(t, 5, cfg.Queue.Workers)
	assert.Equal(t, 1000, cfg.Queue.JobRetention)
	assert.Equal(t, 4, cfg.PersistConcurrency)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "0.0.0.0:8081", cfg.Addr())
	assert.False(t, cfg.NotionEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("DB_POOL_MAX", "20")
	t.Setenv("QUEUE_WORKERS", "not-a-number")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("NOTION_DATABASE_ID", "db")
	t.Setenv("JOB_RETENTION", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, 20, cfg.Storage.PoolMax)
	assert.Equal(t, 5, cfg.Queue.Workers, "unparsable values keep the default")
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, 50, cfg.Queue.JobRetention)
	assert.True(t, cfg.NotionEnabled())
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledger.toml")
	content := `
port = 7000
log_level = "debug"
shutdown_timeout = "10s"

[storage]
backend = "memory"

[queue]
workers = 2

[schedule]
export = "0 0 6 1 * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LEDGER_CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "env wins over file")
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 100, cfg.Queue.Buffer, "defaults survive partial files")
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "0 0 6 1 * *", cfg.Schedule.Export)
}

func TestLoad_BadTOMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = ["), 0o600))
	t.Setenv("LEDGER_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Storage.Backend = StoragePostgres
	cfg.Queue.Backend = QueueAMQP
	cfg.PersistConcurrency = 0

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"PORT", "DATABASE_URL", "AMQP_URL", "PERSIST_CONCURRENCY"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestValidate_Backends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"sqlite default", func(c *Config) {}, false},
		{"memory", func(c *Config) { c.Storage.Backend = StorageMemory }, false},
		{"bigquery without project", func(c *Config) { c.Storage.Backend = StorageBigQuery }, true},
		{"bigquery", func(c *Config) {
			c.Storage.Backend = StorageBigQuery
			c.Storage.BigQueryProject = "p"
		}, false},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "mongo" }, true},
		{"unknown queue", func(c *Config) { c.Queue.Backend = "kafka" }, true},
		{"pool min above max", func(c *Config) {
			c.Storage.Backend = StoragePostgres
			c.Storage.DatabaseURL = "postgres://x"
			c.Storage.PoolMin = 5
			c.Storage.PoolMax = 2
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
