package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "validate", "replay", "faults", "runs"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "validate", "x.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestNewLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(&RootOptions{Format: "json"}, buf)
	logger.Debug("quiet")
	logger.Info("loud", "frame", 3)

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"msg":"loud"`)

	buf.Reset()
	logger = newLogger(&RootOptions{Format: "text", Verbose: true}, buf)
	logger.Debug("quiet")
	assert.Contains(t, buf.String(), "msg=quiet")
}
