package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateCommand_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "server.cue", "tickrate: 5000\ndedicated: true\n")

	out, err := executeValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Settings are valid")
	assert.Contains(t, out, "tickrate:  200")
	assert.Contains(t, out, "dedicated: true")
}

func TestValidateCommand_ValidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "client.yaml", "fps_max: 144\n")

	out, err := executeValidate(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Settings)
	assert.Equal(t, 144.0, resp.Data.Settings.FPSCap)
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "tickrate: 0\ntimescale: -1\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 2 problem(s)")
	assert.Contains(t, out, "[E_CONFIG_INVALID] tickrate: must be positive")
	assert.Contains(t, out, "[E_CONFIG_INVALID] timescale: must be positive")
}

func TestValidateCommand_SchemaViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "negative.cue", "sleeptime: -1\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E_CONFIG_SCHEMA")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	out, err := executeValidate(t, "text", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E_CONFIG_NOT_FOUND")
}

func TestValidateCommand_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.toml", "tickrate = 64\n")

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_Env(t *testing.T) {
	path := writeFile(t, t.TempDir(), "client.yaml", "fps_max: 144\n")
	t.Setenv("FRAMEHOST_FPS_MAX", "60")

	out, err := executeValidate(t, "text", "--env", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fps_max:   60")
}

func TestValidateCommand_MissingArgs(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
