// Package store provides SQLite-backed durable storage for host runs.
//
// The journal is append-only:
//   - Runs: one row per host process, keyed by a UUIDv7 run id
//   - Faults: every recoverable and fatal fault, in report order
//   - Frame samples: periodic timing snapshots of the scheduler
//
// # Ordering
//
// All reads order by frame, then insertion seq. Frame indices are the
// logical clock of a run; wall timestamps are informational only.
//
// # Idempotency
//
// Runs and frame samples use ON CONFLICT DO NOTHING, so replaying a write
// is harmless. Faults are never deduplicated: the same message twice in
// one frame is exactly what escalation needs to see.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
