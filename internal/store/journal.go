package store

import (
	"context"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// Journal binds a Store to one run so the scheduler can record into it.
type Journal struct {
	store *Store
	runID string
}

var _ host.Journal = (*Journal)(nil)

// Journal returns a host.Journal writing to runID. The run must have been
// written with WriteRun first.
func (s *Store) Journal(runID string) *Journal {
	return &Journal{store: s, runID: runID}
}

// RunID returns the bound run.
func (j *Journal) RunID() string { return j.runID }

func (j *Journal) RecordFault(ctx context.Context, rec host.FaultRecord) error {
	return j.store.WriteFault(ctx, j.runID, rec)
}

func (j *Journal) RecordFrame(ctx context.Context, sample host.FrameSample) error {
	return j.store.WriteFrameSample(ctx, j.runID, sample)
}
