package host

// RatePolicy carries every input of the frame rate decision.
type RatePolicy struct {
	Dedicated    bool
	DemoPlayback bool
	DemoRecord   bool
	DemoFPS      float64
	LocalGame    bool
	VSync        bool
	TickRate     float64
	FPSCap       float64
}

// PolicyFor builds the rate policy from the current settings and mode.
func PolicyFor(s Settings, m Mode) RatePolicy {
	return RatePolicy{
		Dedicated:    s.Dedicated,
		DemoPlayback: m.DemoPlayback,
		DemoRecord:   m.DemoRecord,
		DemoFPS:      m.DemoFPS,
		LocalGame:    m.LocalGame,
		VSync:        s.VSync,
		TickRate:     s.TickRate,
		FPSCap:       s.FPSCap,
	}
}

// TargetFPS returns the frame rate the host should hold in the given mode.
// A result <= 0 means no software cap.
//
// The first matching rule wins:
//  1. dedicated: the configured tickrate
//  2. demo playback or recording: the demo's stamped frame rate, so timing
//     matches capture
//  3. vsync on: 0, the display swap paces the loop
//  4. local game: the configured cap, 0 disables capping
//  5. otherwise: the configured cap (0 means MaxFPS) bounded into
//     [MinFPS, MaxFPS], whatever the user configured
func TargetFPS(p RatePolicy) float64 {
	switch {
	case p.Dedicated:
		return p.TickRate
	case p.DemoPlayback || p.DemoRecord:
		return p.DemoFPS
	case p.VSync:
		return 0
	case p.LocalGame:
		return p.FPSCap
	}

	fps := p.FPSCap
	if fps == 0 {
		fps = MaxFPS
	}
	return clamp(fps, MinFPS, MaxFPS)
}

// TargetFrameTime converts a bounded frame rate into seconds per frame.
// Dedicated servers aim for 1/(fps+1) so the advertised tickrate is not
// systematically undershot.
func TargetFrameTime(fps float64, dedicated bool) float64 {
	if dedicated {
		return 1.0 / (fps + 1.0)
	}
	return 1.0 / fps
}

// SleepInterval returns how many milliseconds one sleep should last for
// the current mode and status. 0 selects the non-blocking path.
func SleepInterval(s Settings, m Mode, status Status) int {
	// never sleep in timedemo (benchmarking) or with vsync (latency)
	if !s.Dedicated && (m.TimeDemo || s.VSync) {
		return 0
	}
	if s.Dedicated {
		return s.SleepTime
	}

	switch status {
	case StatusNoFocus:
		if m.ServerActive && m.InGame {
			return s.SleepTime
		}
		return LowActivitySleepMs
	case StatusSleep:
		return LowActivitySleepMs
	}
	return s.SleepTime
}
