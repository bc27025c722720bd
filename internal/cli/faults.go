package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/store"
)

// FaultsOptions holds flags for the faults command.
type FaultsOptions struct {
	*RootOptions
	Database string
	RunID    string
	Fatal    bool
}

// FaultsResult holds the faults of one run.
type FaultsResult struct {
	RunID  string             `json:"run_id"`
	Faults []host.FaultRecord `json:"faults"`
}

// NewFaultsCommand creates the faults command.
func NewFaultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FaultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "faults",
		Short: "List journaled faults of a run",
		Long: `List the faults a run journaled, in report order.

Defaults to the most recent run in the database.

Examples:
  framehost faults --db host.db
  framehost faults --db host.db --run 0190a5b2-... --fatal`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFaults(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().BoolVar(&opts.Fatal, "fatal", false, "only list faults that ended the run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// openJournal opens an existing journal database. Unlike store.Open it
// refuses to create a new file.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runFaults(opts *FaultsOptions, cmd *cobra.Command) error {
	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	runID := opts.RunID
	if runID == "" {
		run, err := st.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitFailure, "no runs in database")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		runID = run.ID
	}

	var faults []host.FaultRecord
	if opts.Fatal {
		faults, err = st.ReadFatalFaults(ctx, runID)
	} else {
		faults, err = st.ReadFaults(ctx, runID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read faults", err)
	}

	result := FaultsResult{RunID: runID, Faults: faults}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	formatter.Printf("Run %s: %d fault(s)\n", runID, len(faults))
	for _, f := range faults {
		marker := " "
		if f.Fatal {
			marker = "!"
		}
		formatter.Printf("%s frame %-8d %-16s %s\n", marker, f.Frame, f.Code, f.Message)
		if f.Previous != "" {
			fmt.Fprintf(formatter.Writer, "    previous: %s\n", f.Previous)
		}
	}
	return nil
}
