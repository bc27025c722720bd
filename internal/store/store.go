package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalPragmas are applied to every connection before the schema.
//
// The host writes one small row per fault and per sampled frame from the
// loop goroutine while `framehost faults` or `runs` may read the same file.
// WAL lets those readers proceed without blocking the writer, and NORMAL
// sync keeps a frame sample from costing an fsync. A crash may lose the
// last few samples but never corrupts earlier runs.
var journalPragmas = []struct {
	name  string
	value string
}{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migration upgrades a journal from version-1 to version.
type migration struct {
	version int
	apply   func(db *sql.DB) error
}

// migrations run in order against PRAGMA user_version.
var migrations = []migration{
	{version: 1, apply: addFatalFaultIndex},
}

// schemaVersion is the user_version of a fully migrated journal.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is the run journal: run headers, faults and frame samples.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating it when missing, and brings
// its schema up to date. ":memory:" gives a private journal, which the
// scenario harness uses per run.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one connection: the frame loop is the only writer, and a
	// ":memory:" database exists per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range journalPragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %q: %w", stmt, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the journal. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad hoc queries in tests and tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates the base tables and applies every migration newer than
// the journal's user_version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := m.apply(db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// addFatalFaultIndex backs ReadFatalFaults, which `framehost faults
// --fatal` runs against journals with many recoverable faults.
func addFatalFaultIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_faults_fatal
		ON faults(run_id, fatal)
	`)
	return err
}

// verifyPragma reports whether PRAGMA name reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
