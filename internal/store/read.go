package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// ListRuns returns every run header, oldest first.
// Runs started in the same millisecond are ordered by id, which is a
// UUIDv7 and therefore time ordered too.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, settings
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run          Run
			settingsJSON string
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &settingsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(settingsJSON), &run.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal run %s settings: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
// Returns sql.ErrNoRows (wrapped) if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var (
		run          Run
		settingsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, settings
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &settingsJSON)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &run.Settings); err != nil {
		return Run{}, fmt.Errorf("unmarshal run %s settings: %w", run.ID, err)
	}
	return run, nil
}

// ReadFaults returns every fault of a run in report order.
func (s *Store) ReadFaults(ctx context.Context, runID string) ([]host.FaultRecord, error) {
	return s.readFaults(ctx, `
		SELECT frame, code, message, previous, fatal
		FROM faults
		WHERE run_id = ?
		ORDER BY frame ASC, seq ASC
	`, runID)
}

// ReadFatalFaults returns only the escalated faults of a run. A run ends
// at its first fatal fault, so this holds at most one record unless the
// run id was reused.
func (s *Store) ReadFatalFaults(ctx context.Context, runID string) ([]host.FaultRecord, error) {
	return s.readFaults(ctx, `
		SELECT frame, code, message, previous, fatal
		FROM faults
		WHERE run_id = ? AND fatal = 1
		ORDER BY frame ASC, seq ASC
	`, runID)
}

func (s *Store) readFaults(ctx context.Context, query, runID string) ([]host.FaultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query faults: %w", err)
	}
	defer rows.Close()

	faults := []host.FaultRecord{}
	for rows.Next() {
		rec, err := scanFault(rows)
		if err != nil {
			return nil, err
		}
		faults = append(faults, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faults: %w", err)
	}
	return faults, nil
}

func scanFault(rows *sql.Rows) (host.FaultRecord, error) {
	var (
		rec   host.FaultRecord
		frame int64
		code  string
		fatal int
	)
	if err := rows.Scan(&frame, &code, &rec.Message, &rec.Previous, &fatal); err != nil {
		return host.FaultRecord{}, fmt.Errorf("scan fault: %w", err)
	}
	rec.Frame = uint64(frame)
	rec.Code = host.FaultCode(code)
	rec.Fatal = fatal != 0
	return rec, nil
}

// ReadFrameSamples returns the timing snapshots of a run by frame.
func (s *Store) ReadFrameSamples(ctx context.Context, runID string) ([]host.FrameSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, real_time, frame_time, pure_frame_time, sleep_window
		FROM frame_samples
		WHERE run_id = ?
		ORDER BY frame ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frame samples: %w", err)
	}
	defer rows.Close()

	samples := []host.FrameSample{}
	for rows.Next() {
		var (
			sample host.FrameSample
			frame  int64
		)
		if err := rows.Scan(&frame, &sample.RealTime, &sample.FrameTime, &sample.PureFrameTime, &sample.SleepWindow); err != nil {
			return nil, fmt.Errorf("scan frame sample: %w", err)
		}
		sample.Frame = uint64(frame)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frame samples: %w", err)
	}
	return samples, nil
}
