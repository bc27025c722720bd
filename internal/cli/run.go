package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/config"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/console"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/session"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config    string
	Database  string
	Dedicated bool
	Frames    uint64
	TickRate  float64
	Map       string
	NoConsole bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to host.UUIDv7Generator.
	RunIDs host.RunIDGenerator
}

// RunSummary is printed when the host loop stops.
type RunSummary struct {
	RunID   string             `json:"run_id"`
	Frames  uint64             `json:"frames"`
	Status  string             `json:"status"`
	Faults  []host.FaultRecord `json:"faults,omitempty"`
	Session session.State      `json:"session"`
	Fatal   *host.FatalError   `json:"fatal,omitempty"`
}

func (s RunSummary) String() string {
	return printer.Sprintf("run %s: %d frames, status %s, %d faults", s.RunID, s.Frames, s.Status, len(s.Faults))
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host frame loop",
		Long: `Run the host frame loop until quit, a signal, --frames, or a fatal fault.

Settings come from defaults, then --config (.cue or .yaml), then
FRAMEHOST_* environment variables, then flags. Console commands are read
from stdin one per line (set, get, cvarlist, status, host_error, quit).

With --db every fault and frame sample is journaled to SQLite.

Exit codes:
  0 - Clean shutdown
  2 - Command error (bad config, database, etc.)
  3 - The loop ended on a fatal fault

Examples:
  framehost run --dedicated --tickrate 64
  framehost run --config server.cue --db host.db
  echo "host_error boom" | framehost run --frames 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "settings file (.cue, .yaml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().BoolVar(&opts.Dedicated, "dedicated", false, "run as a dedicated server")
	cmd.Flags().Uint64Var(&opts.Frames, "frames", 0, "stop after this many frames (0 = unlimited)")
	cmd.Flags().Float64Var(&opts.TickRate, "tickrate", 0, "dedicated server tick rate")
	cmd.Flags().StringVar(&opts.Map, "map", "crossfire", "map to start the session on")
	cmd.Flags().BoolVar(&opts.NoConsole, "no-console", false, "do not read console commands from stdin")

	return cmd
}

func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("dedicated") {
		cfg.Dedicated = opts.Dedicated
	}
	if cmd.Flags().Changed("tickrate") {
		if err := cfg.Set("tickrate", fmt.Sprint(opts.TickRate)); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func runHost(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = host.UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	logger = logger.With("run", runID)

	var (
		journal host.Journal = host.NopJournal{}
		st      *store.Store
	)
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		run := store.Run{ID: runID, StartedAt: time.Now().UnixMilli(), Settings: cfg.HostSettings()}
		if err := st.WriteRun(cmd.Context(), run); err != nil {
			return WrapExitError(ExitCommandError, "failed to write run", err)
		}
		journal = st.Journal(runID)
	}

	con := console.New(&cfg, console.WithOutput(out.GetErrWriter()), console.WithLogger(logger))
	sess := session.New(
		session.WithLogger(logger),
		session.WithCommands(con),
		session.WithDedicated(cfg.Dedicated),
		session.WithMap(opts.Map),
	)

	phases := host.Phases{
		Input:        con.InputPhase,
		SessionBegin: sess.Begin,
		Commands:     con.CommandsPhase,
		Simulation:   sess.Step,
		Background:   frameLimit(opts.Frames),
	}

	schedOpts := []host.Option{
		host.WithLogger(logger),
		host.WithSettings(con.Settings),
		host.WithMode(sess.Mode),
		host.WithSession(sess),
		host.WithJournal(journal),
	}
	sched := host.New(phases, schedOpts...)

	if !opts.NoConsole {
		go readConsole(cmd.InOrStdin(), con.Queue(), cmd.ErrOrStderr())
	}

	loopErr := runLoop(cmd.Context(), sched, con.Queue(), logger)
	con.Queue().Close()

	summary := RunSummary{
		RunID:   runID,
		Frames:  sched.FrameCount(),
		Status:  sched.Status().String(),
		Session: sess.State(),
	}
	if st != nil {
		faults, err := st.ReadFaults(context.Background(), runID)
		if err != nil {
			logger.Warn("failed to read journaled faults", "error", err)
		}
		summary.Faults = faults
	}

	var fe *host.FatalError
	if errors.As(loopErr, &fe) {
		summary.Fatal = fe
		_ = out.Error(string(fe.Code), fe.Error(), summary)
		return WrapExitError(ExitFatal, "host terminated", fe)
	}
	if loopErr != nil {
		return WrapExitError(ExitFailure, "host loop error", loopErr)
	}
	return out.Success(summary)
}

// runLoop runs the scheduler until it stops. SIGINT and SIGTERM are turned
// into a queued quit command so shutdown happens on the frame loop.
func runLoop(parent context.Context, sched *host.Scheduler, queue *console.Queue, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := sched.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			if !queue.Enqueue("quit") {
				cancel()
			}
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// frameLimit returns a Background phase that shuts down after n frames.
func frameLimit(n uint64) host.Phase {
	if n == 0 {
		return nil
	}
	return func(f *host.Frame) error {
		if f.Count()+1 >= n {
			f.Shutdown()
		}
		return nil
	}
}

// readConsole feeds lines from r into queue until EOF. A prompt is shown
// only when r is an interactive terminal.
func readConsole(r io.Reader, queue *console.Queue, prompt io.Writer) {
	interactive := false
	if f, ok := r.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(r)
	for {
		if interactive {
			fmt.Fprint(prompt, "] ")
		}
		if !scanner.Scan() {
			return
		}
		if !queue.Enqueue(scanner.Text()) {
			return
		}
	}
}
