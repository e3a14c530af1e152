// Package repositories implements SQLite persistence for playlists and migration run history.
//
// Key Implementations:
//   - [PlaylistRepository] : source and target playlists, song arrays and key sets stored as JSON columns
//   - [MigrationRunRepository] : one row per orchestrator run, implements [models.Repository]
//
// Both soft delete via deleted_at and exclude deleted records from queries.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
