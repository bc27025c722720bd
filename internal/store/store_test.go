package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhmanyuk-ev/customized-xash3d/internal/host"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run header with default settings.
func createTestRun(t *testing.T, s *Store, id string, startedAt int64) Run {
	t.Helper()
	run := Run{ID: id, StartedAt: startedAt, Settings: host.DefaultSettings()}
	require.NoError(t, s.WriteRun(context.Background(), run))
	return run
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM faults").Scan(&count))
	assert.Zero(t, count)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_MigratesOldJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("DROP INDEX idx_faults_fatal")
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	require.NoError(t, s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_faults_fatal'",
	).Scan(&name))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, s, "run-1", 1000)
	run.StartedAt = 2000
	require.NoError(t, s.WriteRun(ctx, run))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1000), runs[0].StartedAt, "first write wins")
	assert.Equal(t, host.DefaultSettings(), runs[0].Settings)
}

func TestListRuns_OrderAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	createTestRun(t, s, "b", 200)
	createTestRun(t, s, "a", 100)
	createTestRun(t, s, "c", 200)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestLatestRun_Empty(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LatestRun(context.Background())
	assert.Error(t, err)
}

func TestFaults_RoundTripInReportOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)
	createTestRun(t, s, "run-2", 2)

	recs := []host.FaultRecord{
		{Frame: 10, Code: host.FaultHostError, Message: "first"},
		{Frame: 10, Code: host.FaultMultiError, Message: "second", Previous: "first", Fatal: true},
	}
	for _, r := range recs {
		require.NoError(t, s.WriteFault(ctx, "run-1", r))
	}
	require.NoError(t, s.WriteFault(ctx, "run-2", host.FaultRecord{Frame: 4, Code: host.FaultHostError, Message: "other"}))

	got, err := s.ReadFaults(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	fatal, err := s.ReadFatalFaults(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recs[1:], fatal)

	none, err := s.ReadFaults(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteFault_RequiresRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteFault(context.Background(), "ghost", host.FaultRecord{Frame: 1, Code: host.FaultHostError, Message: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "write fault")
}

func TestFrameSamples(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	second := host.FrameSample{Frame: 20, RealTime: 0.2, FrameTime: 0.01, PureFrameTime: 0.002, SleepWindow: 0.006}
	first := host.FrameSample{Frame: 10, RealTime: 0.1, FrameTime: 0.01, PureFrameTime: 0.001, SleepWindow: 0.008}
	require.NoError(t, s.WriteFrameSample(ctx, "run-1", second))
	require.NoError(t, s.WriteFrameSample(ctx, "run-1", first))

	dup := first
	dup.RealTime = 99
	require.NoError(t, s.WriteFrameSample(ctx, "run-1", dup), "duplicate frame is ignored")

	got, err := s.ReadFrameSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []host.FrameSample{first, second}, got)
}

func TestJournal_ImplementsHostJournal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	var j host.Journal = s.Journal("run-1")
	require.NoError(t, j.RecordFault(ctx, host.FaultRecord{Frame: 5, Code: host.FaultHostError, Message: "boom"}))
	require.NoError(t, j.RecordFrame(ctx, host.FrameSample{Frame: 5}))

	faults, err := s.ReadFaults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, "boom", faults[0].Message)

	samples, err := s.ReadFrameSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, samples, 1)
	assert.Equal(t, "run-1", s.Journal("run-1").RunID())
}

func TestJournal_SchedulerFaultsAreStored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	frames := 0
	sched := host.New(host.Phases{
		Simulation: func(f *host.Frame) error {
			frames++
			if frames == 5 {
				f.Fault("entity overflow")
			}
			return nil
		},
	}, host.WithJournal(s.Journal("run-1")), host.WithSettings(func() host.Settings {
		st := host.DefaultSettings()
		st.FPSCap = 0
		return st
	}), host.WithMode(func() host.Mode { return host.Mode{LocalGame: true} }),
		host.WithSleeper(noSleep{}))

	for i := 0; i < 10; i++ {
		require.NoError(t, sched.Tick(0.01))
	}

	faults, err := s.ReadFaults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, host.FaultRecord{Frame: 4, Code: host.FaultHostError, Message: "entity overflow"}, faults[0])
}

type noSleep struct{}

func (noSleep) Sleep(_ time.Duration) {}
