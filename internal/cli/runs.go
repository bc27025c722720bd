package cli

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunsResult holds the journaled run headers.
type RunsResult struct {
	Runs []store.Run `json:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		Long: `List every run recorded in a journal database, oldest first.

Example:
  framehost runs --db host.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(RunsResult{Runs: runs})
	}

	if len(runs) == 0 {
		formatter.Printf("No runs found.\n")
		return nil
	}
	for _, run := range runs {
		kind := "client"
		if run.Settings.Dedicated {
			kind = "dedicated"
		}
		started := time.UnixMilli(run.StartedAt)
		formatter.Printf("%s  %-9s  tickrate %g  fps_max %g  started %s\n",
			run.ID, kind, run.Settings.TickRate, run.Settings.FPSCap, humanize.Time(started))
	}
	return nil
}
