package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// Run is the journal header of one host process.
type Run struct {
	ID string `json:"id"`
	// StartedAt is wall time in unix milliseconds. Informational only.
	StartedAt int64         `json:"started_at"`
	Settings  host.Settings `json:"settings"`
}

// WriteRun inserts a run header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	settingsJSON, err := json.Marshal(run.Settings)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, dedicated, tickrate, fps_max, settings)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartedAt,
		boolToInt(run.Settings.Dedicated),
		run.Settings.TickRate,
		run.Settings.FPSCap,
		string(settingsJSON),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteFault appends a fault record to a run.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteFault(ctx context.Context, runID string, rec host.FaultRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faults (run_id, frame, code, message, previous, fatal)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		runID,
		int64(rec.Frame),
		string(rec.Code),
		rec.Message,
		rec.Previous,
		boolToInt(rec.Fatal),
	)
	if err != nil {
		return fmt.Errorf("write fault: %w", err)
	}
	return nil
}

// WriteFrameSample stores a timing snapshot.
// Uses ON CONFLICT DO NOTHING: one sample per (run, frame).
func (s *Store) WriteFrameSample(ctx context.Context, runID string, sample host.FrameSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO frame_samples (run_id, frame, real_time, frame_time, pure_frame_time, sleep_window)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		int64(sample.Frame),
		sample.RealTime,
		sample.FrameTime,
		sample.PureFrameTime,
		sample.SleepWindow,
	)
	if err != nil {
		return fmt.Errorf("write frame sample: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
