package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/config"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// ErrCodeGeneric is used for failures that carry no config error code.
const ErrCodeGeneric = "E_GENERIC"

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Settings *host.Settings `json:"settings,omitempty"`
	Errors   []CLIError     `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Env bool // apply FRAMEHOST_* overrides before validating
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <settings-file>",
		Short: "Validate a settings file without running the host",
		Long: `Validate a .cue or .yaml settings file against the settings schema.

Prints the resolved host settings on success, including the tick rate
after it has been bounded into the supported range.

Exit codes:
  0 - Settings are valid
  1 - Settings are invalid
  2 - Command error (file not found, unsupported format)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Env, "env", false, "apply FRAMEHOST_* environment overrides")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err == nil && opts.Env {
		err = cfg.ApplyEnv()
	}
	if err != nil {
		errs := configErrors(err)
		if len(errs) == 1 && isCommandError(errs[0].Code) {
			_ = formatter.Error(errs[0].Code, errs[0].Message, nil)
			return NewExitError(ExitCommandError, errs[0].Message)
		}
		return outputValidation(formatter, ValidationResult{Valid: false, Errors: errs})
	}

	settings := cfg.HostSettings()
	return outputValidation(formatter, ValidationResult{Valid: true, Settings: &settings})
}

// configErrors flattens joined config errors into CLI errors.
func configErrors(err error) []CLIError {
	var leaves []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		leaves = joined.Unwrap()
	} else {
		leaves = []error{err}
	}

	out := make([]CLIError, 0, len(leaves))
	for _, e := range leaves {
		var ce *config.Error
		if errors.As(e, &ce) {
			out = append(out, CLIError{Code: ce.Code, Message: ce.Message, Details: ce.Field})
			continue
		}
		out = append(out, CLIError{Code: ErrCodeGeneric, Message: e.Error()})
	}
	return out
}

func isCommandError(code string) bool {
	return code == config.ErrCodeNotFound || code == config.ErrCodeFormat
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		status := "ok"
		if !result.Valid {
			status = "error"
		}
		if err := f.encode(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else if result.Valid {
		s := result.Settings
		fmt.Fprintln(f.Writer, "✓ Settings are valid")
		f.Printf("  tickrate:  %g\n", s.TickRate)
		f.Printf("  fps_max:   %g\n", s.FPSCap)
		f.Printf("  sleeptime: %d ms\n", s.SleepTime)
		f.Printf("  timescale: %g\n", s.TimeScale)
		f.Printf("  dedicated: %t\n", s.Dedicated)
	} else {
		fmt.Fprintf(f.Writer, "✗ %d problem(s):\n", len(result.Errors))
		for _, e := range result.Errors {
			if field, ok := e.Details.(string); ok && field != "" {
				fmt.Fprintf(f.Writer, "  [%s] %s: %s\n", e.Code, field, e.Message)
			} else {
				fmt.Fprintf(f.Writer, "  [%s] %s\n", e.Code, e.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
