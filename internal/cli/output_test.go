package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitFatal, "fatal")), ExitFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open database", inner)

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("E_CONFIG_INVALID", "tickrate must be positive", "tickrate"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG_INVALID", resp.Error.Code)
	assert.Equal(t, "tickrate", resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf}

	require.NoError(t, f.Success("all good"))
	f.VerboseLog("hidden")
	f.Verbose = true
	f.VerboseLog("shown %d", 1)
	f.Printf("%d frames\n", 12345)

	assert.Equal(t, "all good\n12,345 frames\n", buf.String())
	assert.Equal(t, "shown 1\n", errBuf.String())
}

func TestOutputFormatter_ErrWriterFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Writer: buf}
	assert.Same(t, buf, f.GetErrWriter())
}
