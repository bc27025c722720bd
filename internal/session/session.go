// Package session is the reference game session driven by the host loop.
//
// It does not simulate anything real: it tracks whether a server is
// active, advances a world clock by the frame time, and tears itself down
// when the host reports a fault. The CLI uses it to exercise the
// scheduler end to end.
package session

import (
	"log/slog"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// CommandClearer drops queued console commands during a reset.
type CommandClearer interface {
	ClearCommands()
}

// State is a snapshot of the session.
type State struct {
	Active      bool    `json:"active"`
	Map         string  `json:"map"`
	WorldTime   float64 `json:"world_time"`
	Steps       uint64  `json:"steps"`
	Disconnects int     `json:"disconnects"`
	Releases    int     `json:"releases"`
	LastReason  string  `json:"last_reason,omitempty"`
	ShutDown    bool    `json:"shut_down"`
}

// Session implements host.Session and supplies the SessionBegin and
// Simulation phases.
type Session struct {
	logger    *slog.Logger
	commands  CommandClearer
	dedicated bool
	mapName   string
	autostart bool

	state State
}

var _ host.Session = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithCommands sets the console buffer cleared on reset.
func WithCommands(c CommandClearer) Option {
	return func(s *Session) { s.commands = c }
}

// WithDedicated marks the session as a dedicated server.
func WithDedicated(dedicated bool) Option {
	return func(s *Session) { s.dedicated = dedicated }
}

// WithMap sets the map the session starts on. Default: "crossfire".
func WithMap(name string) Option {
	return func(s *Session) { s.mapName = name }
}

// WithAutostart makes Begin start the session again after a disconnect.
// Without it a disconnected session stays down until Start is called.
func WithAutostart(on bool) Option {
	return func(s *Session) { s.autostart = on }
}

// New creates an inactive session. The first Begin starts it.
func New(opts ...Option) *Session {
	s := &Session{
		logger:    slog.Default(),
		mapName:   "crossfire",
		autostart: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start activates the session on the configured map.
func (s *Session) Start() {
	if s.state.ShutDown || s.state.Active {
		return
	}
	s.state.Active = true
	s.state.Map = s.mapName
	s.logger.Info("session started", "map", s.mapName, "dedicated", s.dedicated)
}

// Begin is the SessionBegin phase: it brings the session up when needed.
func (s *Session) Begin(_ *host.Frame) error {
	if s.state.Active || s.state.ShutDown {
		return nil
	}
	if s.state.Disconnects > 0 && !s.autostart {
		return nil
	}
	s.Start()
	return nil
}

// Step is the Simulation phase: it advances the world by the frame time.
func (s *Session) Step(f *host.Frame) error {
	if !s.state.Active {
		return nil
	}
	s.state.WorldTime += f.Time()
	s.state.Steps++
	return nil
}

// Mode derives the runtime mode flags from the session.
func (s *Session) Mode() host.Mode {
	return host.Mode{
		LocalGame:    !s.dedicated,
		ServerActive: s.state.Active,
		InGame:       s.state.Active && !s.dedicated,
	}
}

// State returns a snapshot.
func (s *Session) State() State { return s.state }

// ClearCommands drops buffered console commands.
func (s *Session) ClearCommands() {
	if s.commands != nil {
		s.commands.ClearCommands()
	}
}

// Disconnect drops every client and deactivates the server.
func (s *Session) Disconnect(reason string) {
	s.state.Disconnects++
	s.state.LastReason = reason
	if !s.state.Active {
		return
	}
	s.state.Active = false
	s.logger.Info("session disconnected", "map", s.state.Map, "reason", reason)
}

// ReleaseContent unloads the world.
func (s *Session) ReleaseContent() {
	s.state.Releases++
	s.state.Map = ""
	s.state.WorldTime = 0
}

// Shutdown stops the session for good.
func (s *Session) Shutdown(reason string) {
	if s.state.ShutDown {
		return
	}
	s.Disconnect(reason)
	s.state.ShutDown = true
}
