package app_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/infra/memory"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/jobs/inmemory"
)

func TestNewQueue_Memory(t *testing.T) {
	cfg := config.Default()

	q, err := app.NewQueue(cfg, inmemory.NewStore(), zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &inmemory.Queue{}, q)
	require.NoError(t, q.Close())
}

func TestNewQueue_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Queue.Backend = "kafka"

	_, err := app.NewQueue(cfg, inmemory.NewStore(), zerolog.Nop(), func(*jobs.ProcessMessageJob) {})
	assert.ErrorContains(t, err, "kafka")
}

func TestNewNotionSyncer_Disabled(t *testing.T) {
	_, err := app.NewNotionSyncer(config.Default(), memory.NewEntryRepository(), zerolog.Nop())
	assert.ErrorIs(t, err, app.ErrNotionDisabled)
}

func TestNewNotionSyncer_Enabled(t *testing.T) {
	cfg := config.Default()
	cfg.Notion.Token = "secret"
	cfg.Notion.DatabaseID = "db"

	syncer, err := app.NewNotionSyncer(cfg, memory.NewEntryRepository(), zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, syncer)
}

func TestNewExporter_Disabled(t *testing.T) {
	_, _, err := app.NewExporter(context.Background(), config.Default(), memory.NewEntryRepository(), zerolog.Nop())
	assert.ErrorIs(t, err, app.ErrExportDisabled)
}

func TestLogger_Debug(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.Debug = true
	var buf bytes.Buffer

	l := app.Logger(cfg, &buf)
	l.Debug().Msg("hello")

	assert.Contains(t, buf.String(), `"service":"Ledger Balance Service"`)
	assert.Contains(t, buf.String(), "hello")
}

func TestMigrate_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")

	require.NoError(t, app.Migrate(context.Background(), cfg, app.MigrateUp, zerolog.Nop()))
	// A second run is a no-op.
	require.NoError(t, app.Migrate(context.Background(), cfg, app.MigrateUp, zerolog.Nop()))
	require.NoError(t, app.Migrate(context.Background(), cfg, app.MigrateVersion, zerolog.Nop()))
	require.NoError(t, app.Migrate(context.Background(), cfg, app.MigrateDown, zerolog.Nop()))
}

func TestMigrate_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")
	assert.ErrorContains(t, app.Migrate(context.Background(), cfg, "sideways", zerolog.Nop()), "sideways")

	cfg.Storage.Backend = config.StorageBigQuery
	assert.ErrorContains(t, app.Migrate(context.Background(), cfg, app.MigrateDown, zerolog.Nop()), "only support")

	cfg.Storage.Backend = config.StorageMemory
	assert.NoError(t, app.Migrate(context.Background(), cfg, app.MigrateDown, zerolog.Nop()))
}
