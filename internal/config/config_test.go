package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

func errCode(t *testing.T, err error) string {
	t.Helper()
	var ce *Error
	require.True(t, errors.As(err, &ce), "expected *config.Error, got %T: %v", err, err)
	return ce.Code
}

func TestDefault_MatchesHostDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, host.DefaultSettings(), cfg.HostSettings())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CUE(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "server.cue"))
	require.NoError(t, err)

	assert.Equal(t, 64.0, cfg.TickRate)
	assert.Equal(t, 2, cfg.SleepTime)
	assert.True(t, cfg.Dedicated)
	assert.Equal(t, 10, cfg.SampleInterval)
	// schema defaults fill the rest
	assert.Equal(t, 72.0, cfg.FPSMax)
	assert.Equal(t, 1.0, cfg.TimeScale)
	assert.False(t, cfg.VSync)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "client.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 144.0, cfg.FPSMax)
	assert.Equal(t, 0.5, cfg.TimeScale)
	assert.Equal(t, 0.01, cfg.Framerate)
	assert.True(t, cfg.SleepDebug)
	assert.Equal(t, 100.0, cfg.TickRate)
	assert.Equal(t, 1, cfg.SleepTime)
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join("testdata", "nope.cue"), ErrCodeNotFound},
		{"unknown yaml field", filepath.Join("testdata", "unknown.yaml"), ErrCodeParse},
		{"unknown cue field", filepath.Join("testdata", "unknown.cue"), ErrCodeSchema},
		{"negative cue value", filepath.Join("testdata", "negative.cue"), ErrCodeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.code, errCode(t, err))
		})
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("tickrate = 64"), 0o644))

	_, err := Load(path)
	assert.Equal(t, ErrCodeFormat, errCode(t, err))
}

func TestLoad_TickRateIsBounded(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "fast.yaml"))
	require.NoError(t, err)
	assert.Equal(t, host.MaxFPS, cfg.TickRate)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, host.MinFPS, cfg.TickRate)

	bad := Default()
	bad.FPSMax = -1
	bad.SleepTime = -3
	bad.TimeScale = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fps_max")
	assert.Contains(t, err.Error(), "sleeptime")
	assert.Contains(t, err.Error(), "timescale")
}

func TestValidate_NonFinite(t *testing.T) {
	tests := []struct {
		name  string
		field string
		set   func(c *Config)
	}{
		{"inf timescale", "timescale", func(c *Config) { c.TimeScale = math.Inf(1) }},
		{"nan fps_max", "fps_max", func(c *Config) { c.FPSMax = math.NaN() }},
		{"nan tickrate", "tickrate", func(c *Config) { c.TickRate = math.NaN() }},
		{"-inf framerate", "framerate", func(c *Config) { c.Framerate = math.Inf(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.set(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field+": must be a finite number")
		})
	}
}

func TestLoad_YAMLInfinity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timescale: .inf\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, errCode(t, err))
}

func TestApplyEnvMap_RejectsNaN(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnvMap(map[string]string{"FRAMEHOST_FPS_MAX": "NaN"})
	require.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnvMap(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnvMap(map[string]string{
		"FRAMEHOST_TICKRATE":  "30",
		"FRAMEHOST_DEDICATED": "true",
		"TICKRATE":            "999",
	})
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.TickRate)
	assert.True(t, cfg.Dedicated)
	assert.Equal(t, 72.0, cfg.FPSMax, "unset variables keep their value")
}

func TestApplyEnvMap_InvalidLeavesConfigUntouched(t *testing.T) {
	cfg := Default()

	err := cfg.ApplyEnvMap(map[string]string{"FRAMEHOST_SLEEPTIME": "soon"})
	assert.Equal(t, ErrCodeEnv, errCode(t, err))

	err = cfg.ApplyEnvMap(map[string]string{"FRAMEHOST_TIMESCALE": "-2"})
	require.Error(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FRAMEHOST_FPS_MAX", "30")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 30.0, cfg.FPSMax)
}

func TestSetGet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("fps_max", "144"))
	require.NoError(t, cfg.Set("vsync", "1"))
	require.NoError(t, cfg.Set("sleeptime", " 5 "))

	v, err := cfg.Get("fps_max")
	require.NoError(t, err)
	assert.Equal(t, "144", v)

	v, err = cfg.Get("vsync")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	assert.Equal(t, 5, cfg.HostSettings().SleepTime)
}

func TestSet_Rejects(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ErrCodeUnknownVar, errCode(t, cfg.Set("gravity", "800")))
	assert.Equal(t, ErrCodeInvalidVal, errCode(t, cfg.Set("fps_max", "fast")))
	assert.Error(t, cfg.Set("timescale", "0"))
	for _, v := range []string{"inf", "nan", "1e400", "-Inf"} {
		assert.Error(t, cfg.Set("timescale", v), v)
		assert.Error(t, cfg.Set("fps_max", v), v)
	}

	_, err := cfg.Get("gravity")
	assert.Equal(t, ErrCodeUnknownVar, errCode(t, err))

	assert.Equal(t, Default(), cfg, "failed sets leave the config unchanged")
}

func TestSet_TickRateIsBounded(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("tickrate", "1000"))
	v, _ := cfg.Get("tickrate")
	assert.Equal(t, "200", v)
}

func TestVarNames(t *testing.T) {
	names := VarNames()
	assert.Len(t, names, 9)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "sleeptime_debug")
}
