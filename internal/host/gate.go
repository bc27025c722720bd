package host

// GateInputs is the narrow view of host state the frame gate reads.
type GateInputs interface {
	Settings() Settings
	Mode() Mode
	Status() Status
	PureFrameTime() float64
}

// FrameGate answers one question per loop iteration: has enough real
// time elapsed to run a new frame, and if not, should the host block?
type FrameGate struct {
	in     GateInputs
	budget *SleepBudget
}

// NewFrameGate combines the frame rate policy with a sleep budget.
func NewFrameGate(in GateInputs, budget *SleepBudget) *FrameGate {
	return &FrameGate{in: in, budget: budget}
}

// ShouldRunFrame reports whether a frame with raw delta dt (already
// scaled) may run now. It may block once, for at most one sleep interval.
func (g *FrameGate) ShouldRunFrame(dt, scale float64) bool {
	settings := g.in.Settings()
	mode := g.in.Mode()

	fps := TargetFPS(PolicyFor(settings, mode))
	if fps <= 0 {
		return true
	}

	fps = clamp(fps, MinFPS, MaxFPS)
	target := TargetFrameTime(fps, settings.Dedicated)

	sleepMs := SleepInterval(settings, mode, g.in.Status())
	if sleepMs <= 0 {
		return dt >= target*scale
	}

	if dt < target*scale {
		g.budget.Wait(sleepMs)
		return false
	}

	g.budget.Due(target, g.in.PureFrameTime(), sleepMs)
	return true
}
