package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/store"
)

// seedJournal writes two runs; the second ends on a multi error.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	settings := host.DefaultSettings()
	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "run-a", StartedAt: 1000, Settings: settings}))
	settings.Dedicated = true
	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "run-b", StartedAt: 2000, Settings: settings}))

	require.NoError(t, st.WriteFault(ctx, "run-a", host.FaultRecord{Frame: 40, Code: host.FaultHostError, Message: "old"}))
	require.NoError(t, st.WriteFault(ctx, "run-b", host.FaultRecord{Frame: 10, Code: host.FaultHostError, Message: "first"}))
	require.NoError(t, st.WriteFault(ctx, "run-b", host.FaultRecord{
		Frame: 10, Code: host.FaultMultiError, Message: "second", Previous: "first", Fatal: true,
	}))
	return path
}

func executeFaults(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewFaultsCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestFaultsCommand_LatestRun(t *testing.T) {
	db := seedJournal(t)

	out, err := executeFaults(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-b: 2 fault(s)")
	assert.Contains(t, out, "HOST_ERROR")
	assert.Contains(t, out, "! frame 10")
	assert.Contains(t, out, "previous: first")
	assert.NotContains(t, out, "old")
}

func TestFaultsCommand_RunAndFatalFilter(t *testing.T) {
	db := seedJournal(t)

	out, err := executeFaults(t, "json", "--db", db, "--run", "run-b", "--fatal")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   FaultsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-b", resp.Data.RunID)
	require.Len(t, resp.Data.Faults, 1)
	assert.Equal(t, host.FaultMultiError, resp.Data.Faults[0].Code)
	assert.True(t, resp.Data.Faults[0].Fatal)

	out, err = executeFaults(t, "text", "--db", db, "--run", "run-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-a: 1 fault(s)")
}

func TestFaultsCommand_MissingDatabase(t *testing.T) {
	_, err := executeFaults(t, "text", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestFaultsCommand_RequiresDB(t *testing.T) {
	_, err := executeFaults(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestFaultsCommand_EmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = executeFaults(t, "text", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "no runs in database")
}
