package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoadPlaylists Phase = iota
	Compare
	MigrateBatch
	RefreshTarget
	Mutate
	ImportSource
	SyncTargets
)

func (p Phase) String() string {
	switch p {
	case LoadPlaylists:
		return "load_playlists"
	case Compare:
		return "compare"
	case MigrateBatch:
		return "migrate_batch"
	case RefreshTarget:
		return "refresh_target"
	case Mutate:
		return "mutate"
	case ImportSource:
		return "import_source"
	case SyncTargets:
		return "sync_targets"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func batchStartUpdate(step, total int, batch []models.MigrationItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MigrateBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Migrating %d songs...", step, total, len(batch)),
		Data:    batch,
	}
}

func batchDoneUpdate(step, total int, result models.MigrationResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MigrateBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %d migrated, %d failed", step, total, len(result.Migrated), len(result.Failed)),
		Data:    result,
	}
}

func batchFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MigrateBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ batch failed: %v", step, total, err),
	}
}

func refreshUpdate(step, total int, targetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshTarget,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Refreshing target playlist (%s)...", targetID),
	}
}

func cancelledUpdate(step, total, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MigrateBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Cancelled, %d songs skipped", skipped),
	}
}

func syncTargetUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncTargets,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading %s...", step, total, name),
	}
}
