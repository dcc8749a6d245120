package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBalance_EmptyStore(t *testing.T) {
	out, err := run(t, "balance", "--start", "2025-03-01", "--end", "2025-03-31")

	require.NoError(t, err)
	assert.Equal(t, "Balance from 2025-03-01 to 2025-03-31: 0.00. 0 transactions.\n", out)
}

func TestBalance_BadPeriod(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"reversed", []string{"balance", "--start", "2025-03-31", "--end", "2025-03-01"}},
		{"malformed start", []string{"balance", "--start", "03/01/2025", "--end", "2025-03-31"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBalance_RequiresFlags(t *testing.T) {
	_, err := run(t, "balance", "--start", "2025-03-01")
	assert.ErrorContains(t, err, "end")
}

func TestMigrate_RejectsUnknownDirection(t *testing.T) {
	_, err := run(t, "migrate", "sideways")
	assert.Error(t, err)
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	_, err := run(t, "migrate", "up")
	assert.NoError(t, err)
}

func TestExport_RequiresBucket(t *testing.T) {
	t.Setenv("EXPORT_BUCKET", "")
	_, err := run(t, "export", "--start", "2025-03-01", "--end", "2025-03-31")
	assert.ErrorContains(t, err, "EXPORT_BUCKET")
}

func TestProcess_RequiresText(t *testing.T) {
	_, err := run(t, "process")
	assert.Error(t, err)
}
