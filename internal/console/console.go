// Package console turns text input into host commands.
//
// Lines arrive on a Queue from any goroutine. Once per frame the Input
// phase drains the queue into the Buffer, and the Commands phase executes
// the buffered commands on the frame loop. A fault raised by a command
// aborts the frame; the session reset then clears whatever is left in the
// buffer through ClearCommands.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/config"
	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// Handler runs one command. args[0] is the command name. A returned error
// is printed to the console output; it is not a fault.
type Handler func(c *Console, f *host.Frame, args []string) error

type command struct {
	usage string
	run   Handler
}

// Console owns the command buffer and the live variables.
type Console struct {
	queue    *Queue
	buffer   Buffer
	vars     *config.Config
	out      io.Writer
	logger   *slog.Logger
	commands map[string]command
}

// Option configures a Console.
type Option func(*Console)

// WithOutput sets where command output is printed. Default: io.Discard.
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.logger = l }
}

// WithQueue shares an existing input queue.
func WithQueue(q *Queue) Option {
	return func(c *Console) { c.queue = q }
}

// New creates a console over vars with the built-in commands registered.
// vars is mutated by `set` and must only be touched from the frame loop.
func New(vars *config.Config, opts ...Option) *Console {
	c := &Console{
		vars:     vars,
		out:      io.Discard,
		logger:   slog.Default(),
		commands: make(map[string]command),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.queue == nil {
		c.queue = NewQueue()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	registerBuiltins(c)
	return c
}

// Register adds or replaces a command.
func (c *Console) Register(name, usage string, run Handler) {
	c.commands[name] = command{usage: usage, run: run}
}

// Commands returns the registered command names, sorted.
func (c *Console) Commands() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Queue returns the input queue.
func (c *Console) Queue() *Queue { return c.queue }

// Vars returns the live variables.
func (c *Console) Vars() *config.Config { return c.vars }

// Settings converts the live variables for the scheduler.
func (c *Console) Settings() host.Settings { return c.vars.HostSettings() }

// AddText buffers command text for the next Commands phase.
func (c *Console) AddText(text string) { c.buffer.AddText(text) }

// Pending returns the number of buffered commands.
func (c *Console) Pending() int { return c.buffer.Len() }

// ClearCommands drops every buffered command.
func (c *Console) ClearCommands() { c.buffer.Clear() }

// Printf writes to the console output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// InputPhase drains the queue into the buffer. It never blocks.
func (c *Console) InputPhase(_ *host.Frame) error {
	for {
		line, ok := c.queue.TryDequeue()
		if !ok {
			return nil
		}
		c.buffer.AddText(line)
	}
}

// CommandsPhase executes every buffered command in order.
func (c *Console) CommandsPhase(f *host.Frame) error {
	for {
		cmd, ok := c.buffer.Next()
		if !ok {
			return nil
		}
		c.Execute(f, cmd)
	}
}

// Execute runs a single command line.
func (c *Console) Execute(f *host.Frame, line string) {
	args := Tokenize(line)
	if len(args) == 0 {
		return
	}
	name := strings.ToLower(args[0])

	cmd, ok := c.commands[name]
	if !ok {
		c.Printf("Unknown command %q\n", args[0])
		return
	}

	c.logger.Debug("console command", "command", name, "args", len(args)-1)
	if err := cmd.run(c, f, args); err != nil {
		c.Printf("%s: %v\n", name, err)
		if cmd.usage != "" {
			c.Printf("usage: %s\n", cmd.usage)
		}
	}
}
