// Package config loads and validates the host tuning variables.
//
// Settings come from three layers, applied in order:
//  1. Default values
//  2. A settings file (.cue validated against the embedded schema, or YAML)
//  3. FRAMEHOST_* environment variables
//
// The result is validated once and converted to host.Settings for the
// scheduler. Console commands mutate a live Config through Set.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FRAMEHOST_"

// Error codes for configuration failures.
const (
	ErrCodeNotFound   = "E_CONFIG_NOT_FOUND"
	ErrCodeFormat     = "E_CONFIG_FORMAT"
	ErrCodeParse      = "E_CONFIG_PARSE"
	ErrCodeSchema     = "E_CONFIG_SCHEMA"
	ErrCodeEnv        = "E_CONFIG_ENV"
	ErrCodeInvalid    = "E_CONFIG_INVALID"
	ErrCodeUnknownVar = "E_CONFIG_UNKNOWN_VAR"
	ErrCodeInvalidVal = "E_CONFIG_INVALID_VALUE"
)

// Error is a configuration failure with a stable code.
type Error struct {
	Code    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config holds the host tuning variables under their console names.
type Config struct {
	TickRate       float64 `yaml:"tickrate" json:"tickrate" env:"TICKRATE"`
	FPSMax         float64 `yaml:"fps_max" json:"fps_max" env:"FPS_MAX"`
	SleepTime      int     `yaml:"sleeptime" json:"sleeptime" env:"SLEEPTIME"`
	TimeScale      float64 `yaml:"timescale" json:"timescale" env:"TIMESCALE"`
	Framerate      float64 `yaml:"framerate" json:"framerate" env:"FRAMERATE"`
	VSync          bool    `yaml:"vsync" json:"vsync" env:"VSYNC"`
	Dedicated      bool    `yaml:"dedicated" json:"dedicated" env:"DEDICATED"`
	SleepDebug     bool    `yaml:"sleeptime_debug" json:"sleeptime_debug" env:"SLEEPTIME_DEBUG"`
	SampleInterval int     `yaml:"sample_interval" json:"sample_interval" env:"SAMPLE_INTERVAL"`
}

// Default returns the stock values of every variable.
func Default() Config {
	d := host.DefaultSettings()
	return Config{
		TickRate:  d.TickRate,
		FPSMax:    d.FPSCap,
		SleepTime: d.SleepTime,
		TimeScale: d.TimeScale,
	}
}

// Load reads a settings file on top of the defaults. The format is chosen
// by extension. The result is validated but environment overrides are not
// applied; call ApplyEnv for that.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("settings file not found: %s", path)}
		}
		return Config{}, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		cfg, err = parseCUE(path, data)
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	default:
		return Config{}, &Error{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported settings format %q (want .cue, .yaml or .yml)", filepath.Ext(path))}
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile settings schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return Config{}, &Error{Code: ErrCodeParse, Message: err.Error()}
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &Error{Code: ErrCodeSchema, Message: err.Error()}
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, &Error{Code: ErrCodeSchema, Message: fmt.Sprintf("decode: %v", err)}
	}
	return cfg, nil
}

func parseYAML(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// an empty file keeps the defaults
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, &Error{Code: ErrCodeParse, Message: err.Error()}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FRAMEHOST_* variables in the process
// environment and re-validates.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{Prefix: EnvPrefix})
}

// ApplyEnvMap is ApplyEnv reading from environ instead of the process
// environment. Keys carry the prefix.
func (c *Config) ApplyEnvMap(environ map[string]string) error {
	return c.applyEnv(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func (c *Config) applyEnv(opts env.Options) error {
	next := *c
	if err := env.ParseWithOptions(&next, opts); err != nil {
		return &Error{Code: ErrCodeEnv, Message: err.Error()}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Validate rejects values the scheduler cannot use and bounds the tick
// rate into [host.MinFPS, host.MaxFPS]. NaN and infinities are rejected
// before the range checks. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, &Error{Code: ErrCodeInvalid, Field: field, Message: msg})
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"tickrate", c.TickRate},
		{"fps_max", c.FPSMax},
		{"timescale", c.TimeScale},
		{"framerate", c.Framerate},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			invalid(f.name, "must be a finite number")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.TickRate <= 0 {
		invalid("tickrate", "must be positive")
	}
	if c.FPSMax < 0 {
		invalid("fps_max", "must not be negative")
	}
	if c.SleepTime < 0 {
		invalid("sleeptime", "must not be negative")
	}
	if !(c.TimeScale > 0) {
		invalid("timescale", "must be positive")
	}
	if c.Framerate < 0 {
		invalid("framerate", "must not be negative")
	}
	if c.SampleInterval < 0 {
		invalid("sample_interval", "must not be negative")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.TickRate < host.MinFPS {
		c.TickRate = host.MinFPS
	} else if c.TickRate > host.MaxFPS {
		c.TickRate = host.MaxFPS
	}
	return nil
}

// HostSettings converts the variables for the scheduler.
func (c Config) HostSettings() host.Settings {
	return host.Settings{
		TickRate:       c.TickRate,
		FPSCap:         c.FPSMax,
		SleepTime:      c.SleepTime,
		TimeScale:      c.TimeScale,
		Framerate:      c.Framerate,
		VSync:          c.VSync,
		Dedicated:      c.Dedicated,
		SleepDebug:     c.SleepDebug,
		SampleInterval: c.SampleInterval,
	}
}

type variable struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func floatVar(field func(c *Config) *float64) variable {
	return variable{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*field(c) = f
			return nil
		},
	}
}

func intVar(field func(c *Config) *int) variable {
	return variable{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
	}
}

func boolVar(field func(c *Config) *bool) variable {
	return variable{
		get: func(c *Config) string {
			if *field(c) {
				return "1"
			}
			return "0"
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

var variables = map[string]variable{
	"tickrate":        floatVar(func(c *Config) *float64 { return &c.TickRate }),
	"fps_max":         floatVar(func(c *Config) *float64 { return &c.FPSMax }),
	"sleeptime":       intVar(func(c *Config) *int { return &c.SleepTime }),
	"timescale":       floatVar(func(c *Config) *float64 { return &c.TimeScale }),
	"framerate":       floatVar(func(c *Config) *float64 { return &c.Framerate }),
	"vsync":           boolVar(func(c *Config) *bool { return &c.VSync }),
	"dedicated":       boolVar(func(c *Config) *bool { return &c.Dedicated }),
	"sleeptime_debug": boolVar(func(c *Config) *bool { return &c.SleepDebug }),
	"sample_interval": intVar(func(c *Config) *int { return &c.SampleInterval }),
}

// VarNames returns the console names of every variable, sorted.
func VarNames() []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Set assigns a variable by console name. The change is applied only if
// the resulting Config validates.
func (c *Config) Set(name, value string) error {
	v, ok := variables[name]
	if !ok {
		return &Error{Code: ErrCodeUnknownVar, Field: name, Message: "unknown variable"}
	}
	next := *c
	if err := v.set(&next, strings.TrimSpace(value)); err != nil {
		return &Error{Code: ErrCodeInvalidVal, Field: name, Message: fmt.Sprintf("cannot parse %q", value)}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get formats a variable by console name.
func (c *Config) Get(name string) (string, error) {
	v, ok := variables[name]
	if !ok {
		return "", &Error{Code: ErrCodeUnknownVar, Field: name, Message: "unknown variable"}
	}
	return v.get(c), nil
}
