package host

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session is the collaborator reset when a fault is unwound.
//
// Reset order matches the fault protocol: pending commands are dropped
// first so nothing queued by the failed frame executes, then the network
// session is torn down, then loaded content is released.
type Session interface {
	ClearCommands()
	Disconnect(reason string)
	ReleaseContent()
	// Shutdown is called once, when the host begins tearing down.
	Shutdown(reason string)
}

// NopSession ignores every call.
type NopSession struct{}

func (NopSession) ClearCommands()    {}
func (NopSession) Disconnect(string) {}
func (NopSession) ReleaseContent()   {}
func (NopSession) Shutdown(string)   {}

// FaultRecord is a journaled fault.
type FaultRecord struct {
	Frame    uint64    `json:"frame"`
	Code     FaultCode `json:"code"`
	Message  string    `json:"message"`
	Previous string    `json:"previous,omitempty"`
	Fatal    bool      `json:"fatal"`
}

// FrameSample is a journaled snapshot of frame timing.
type FrameSample struct {
	Frame         uint64  `json:"frame"`
	RealTime      float64 `json:"real_time"`
	FrameTime     float64 `json:"frame_time"`
	PureFrameTime float64 `json:"pure_frame_time"`
	SleepWindow   float64 `json:"sleep_window"`
}

// Journal persists faults and frame samples. Journal errors are logged and
// never interrupt the frame loop.
type Journal interface {
	RecordFault(ctx context.Context, rec FaultRecord) error
	RecordFrame(ctx context.Context, sample FrameSample) error
}

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) RecordFault(context.Context, FaultRecord) error { return nil }
func (NopJournal) RecordFrame(context.Context, FrameSample) error { return nil }

// RunIDGenerator names one run of the host loop in the journal.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids, so journal runs
// sort by start time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch a test that started more
// runs than it declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
