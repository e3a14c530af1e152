// Package tasks implements playlist reconciliation, the migration orchestrator
// and the playlist mutation protocol on top of a [services.MutationExecutor].
//
// # Reconciliation
//
// [Reconcile] aligns a source song list with a target song list by comparison
// key. It is pure and safe to call on every state change:
//   - [DiffMatched] : found at the same index
//   - [DiffShifted] : found at another index (drift)
//   - [DiffMissing] : not in the target
//   - [DiffUnkeyed] : no title, never matched
//
// Unclaimed keyed target indices are extras. [VisibleStatuses] hides statuses
// the user marked resolved without touching the summary.
//
// # Migration
//
// [Migrator.Migrate] sends items in contiguous batches, one executor call at a
// time. After each batch the migrated keys are marked on the source and the
// target is refreshed; a failed refresh marks the target stale. A batch that
// fails as a whole becomes failed items and the run continues.
// Cancellation is checked between batches only.
//
// # Mutations
//
// [Mutator] validates insert, move and remove locally before calling the
// executor. [ResolveRef] maps a positional key to the stored provider
// reference and fails with [shared.ErrUnresolvedReference] when there is none.
//
// # Progress Reporting
//
// Long operations accept a ProgressUpdate channel. Updates use select with
// default so reporting never blocks.
//
// # Service
//
// [Service] binds a [PlaylistStore], the executor, the migrator and the
// mutator. A [TargetGuard] shared by both rejects a second operation on a
// target that is still busy with [shared.ErrPlaylistBusy].
package tasks
