// Package store provides SQLite-backed storage for rotation
// configuration snapshots, append-only shift history, group
// membership, and the cron anchor cache.
//
// The resolution engine consumes this package through the narrow
// interfaces defined in internal/resolve (Source, GroupDirectory,
// AnchorCache); *Store satisfies all three.
//
// CONCURRENCY:
//
// Resolution is a pure read; no locks guard it. The two write paths
// near the engine are both constraint-guarded rather than locked:
//   - shifts carries UNIQUE(rotation_id, shift_start) so workers
//     racing to materialize the same shift are idempotent.
//   - shift_anchors updates are guarded so handoff_count never moves
//     backwards under concurrent resolutions.
package store
