package host

import "math"

// Frame rate and frame time bounds.
const (
	// MinFPS is the lowest usable frame rate cap.
	MinFPS = 20.0
	// MaxFPS is the highest usable frame rate cap.
	MaxFPS = 200.0
	// MinFrameTime is the smallest frame time handed to phases, in seconds.
	MinFrameTime = 0.0001
	// MaxFrameTime is the largest frame time handed to phases, in seconds.
	MaxFrameTime = 0.25

	// LowActivitySleepMs is the sleep interval used while the host is
	// unfocused or asleep.
	LowActivitySleepMs = 20

	// EarlyBootFrames is the number of leading frames in which any fault
	// is fatal.
	EarlyBootFrames = 3
)

// Settings holds the externally owned tuning variables read every frame.
type Settings struct {
	// TickRate is the fixed frame rate in dedicated mode.
	TickRate float64 `json:"tickrate"`
	// FPSCap limits the client frame rate when vsync is off. 0 disables
	// capping in a local game and means MaxFPS elsewhere.
	FPSCap float64 `json:"fps_max"`
	// SleepTime is the per-sleep interval in milliseconds.
	SleepTime int `json:"sleeptime"`
	// TimeScale scales elapsed real time.
	TimeScale float64 `json:"timescale"`
	// Framerate locks the frame time of a local game, in seconds. 0 is off.
	Framerate float64 `json:"framerate"`
	// VSync disables the software cap; the display swap paces frames.
	VSync bool `json:"vsync"`
	// Dedicated selects server tickrate pacing.
	Dedicated bool `json:"dedicated"`
	// SleepDebug logs every sleep decision at debug level.
	SleepDebug bool `json:"sleeptime_debug"`
	// SampleInterval journals one frame sample every N frames. 0 is off.
	SampleInterval int `json:"sample_interval"`
}

// DefaultSettings returns the stock variable values.
func DefaultSettings() Settings {
	return Settings{
		TickRate:  100,
		FPSCap:    72,
		SleepTime: 1,
		TimeScale: 1,
	}
}

// Mode is a snapshot of runtime flags owned by collaborators (demo player,
// client, server) that influence pacing.
type Mode struct {
	DemoPlayback bool
	DemoRecord   bool
	// DemoFPS is the frame rate stamped into the demo being played or recorded.
	DemoFPS  float64
	TimeDemo bool
	// LocalGame is true for a single-player (loopback) game.
	LocalGame    bool
	ServerActive bool
	InGame       bool
}

// clamp bounds v into [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
