package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// DefaultBatchSize is the number of songs sent per executor migrate call.
const DefaultBatchSize = 5

// MigrateRequest describes one orchestrator run.
//
// SourceID is optional; when set, migrated keys are marked on that playlist
// after every batch.
type MigrateRequest struct {
	SourceID         string
	TargetID         string
	Items            []models.MigrationItem
	PreservePosition bool
	BatchSize        int
}

// Outcome summarizes a run for display.
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // N migrated, 0 failed
	OutcomePartial Outcome = "partial" // N migrated, M failed
	OutcomeNoop    Outcome = "noop"    // nothing migrated or failed
	OutcomeFailed  Outcome = "failed"  // 0 migrated, M failed
)

// BatchError records a batch whose executor call failed as a whole.
type BatchError struct {
	Batch    int                     `json:"batch"`
	Items    int                     `json:"items"`
	Message  string                  `json:"error"`
	Executor *services.ExecutorError `json:"executor,omitempty"`
	Err      error                   `json:"-"`
}

// MigrationReport is the accumulated result of a run.
type MigrationReport struct {
	RunID    string `json:"runId,omitempty"`
	SourceID string `json:"sourceId,omitempty"`
	TargetID string `json:"targetId"`
	models.MigrationResult
	Batches     int          `json:"batches"`
	BatchErrors []BatchError `json:"batchErrors,omitempty"`
	Skipped     int          `json:"skipped"`
	Cancelled   bool         `json:"cancelled"`
	TargetStale bool         `json:"targetStale"`
}

func (r *MigrationReport) Outcome() Outcome {
	migrated, failed := len(r.Migrated), len(r.Failed)
	switch {
	case migrated == 0 && failed == 0:
		return OutcomeNoop
	case failed == 0:
		return OutcomeSuccess
	case migrated == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Summary is a one line description of the outcome. Partial and failed runs
// carry the first failure's message.
func (r *MigrationReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d migrated, %d failed", len(r.Migrated), len(r.Failed))
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", r.Skipped)
	}
	switch r.Outcome() {
	case OutcomePartial, OutcomeFailed:
		fmt.Fprintf(&b, ": %s", r.Failed[0].Error)
	}
	return b.String()
}

// runStatus maps the report onto the persisted run lifecycle.
func (r *MigrationReport) runStatus() models.RunStatus {
	if r.Cancelled {
		return models.RunCancelled
	}
	switch r.Outcome() {
	case OutcomePartial:
		return models.RunPartial
	case OutcomeFailed:
		return models.RunFailed
	default:
		return models.RunCompleted
	}
}

// MigratorOpts configures a [Migrator].
type MigratorOpts struct {
	Runs   RunRecorder  // optional run history
	Guard  *TargetGuard // shared with the [Mutator] acting on the same targets
	Logger *log.Logger
}

// Migrator submits migration items to the executor in sequential batches.
type Migrator struct {
	executor services.MutationExecutor
	store    PlaylistStore
	runs     RunRecorder
	guard    *TargetGuard
	logger   *log.Logger
	now      func() time.Time
}

// NewMigrator creates a Migrator.
func NewMigrator(executor services.MutationExecutor, store PlaylistStore, opts MigratorOpts) *Migrator {
	m := &Migrator{
		executor: executor,
		store:    store,
		runs:     opts.Runs,
		guard:    opts.Guard,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if m.guard == nil {
		m.guard = NewTargetGuard()
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	return m
}

// batches splits items into contiguous chunks of at most size, keeping order.
func batches(items []models.MigrationItem, size int) [][]models.MigrationItem {
	var out [][]models.MigrationItem
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}

// Migrate runs every batch of req in order and returns the accumulated report.
//
// Only validation and busy-target errors are returned. A failed batch is
// recorded in the report and the next batch still runs. Cancellation of ctx
// is observed between batches; the batch in flight always completes.
func (m *Migrator) Migrate(ctx context.Context, req MigrateRequest, progress chan<- ProgressUpdate) (*MigrationReport, error) {
	if strings.TrimSpace(req.TargetID) == "" {
		return nil, fmt.Errorf("%w: target playlist id is required", shared.ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no songs selected for migration", shared.ErrValidation)
	}
	size := req.BatchSize
	if size < 1 {
		size = DefaultBatchSize
	}

	release, err := m.guard.Acquire(req.TargetID)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := shared.WithLogger(m.logger, "target", req.TargetID)
	report := &MigrationReport{SourceID: req.SourceID, TargetID: req.TargetID}
	run := m.startRun(logger, req, size)
	if run != nil {
		report.RunID = run.ID()
	}

	chunks := batches(req.Items, size)
	total := len(chunks)
	detached := context.WithoutCancel(ctx)

	for i, batch := range chunks {
		step := i + 1
		if ctx.Err() != nil {
			for _, rest := range chunks[i:] {
				report.Skipped += len(rest)
			}
			report.Cancelled = true
			logger.Warn("migration cancelled", "batch", step, "skipped", report.Skipped)
			sendProgress(progress, cancelledUpdate(step, total, report.Skipped))
			break
		}

		sendProgress(progress, batchStartUpdate(step, total, batch))
		report.Batches++

		resp, err := m.executor.Migrate(detached, services.MigrateRequest{
			PlaylistID:       req.TargetID,
			Songs:            batch,
			PreservePosition: req.PreservePosition,
		})
		if err != nil {
			m.failBatch(report, step, batch, err)
			logger.Error("batch failed", "batch", step, "items", len(batch), "error", err)
			sendProgress(progress, batchFailedUpdate(step, total, err))
		} else {
			report.Merge(resp.MigrationResult)
			m.markMigrated(logger, req.SourceID, resp.MigratedKeys())
			logger.Info("batch done", "batch", step, "migrated", len(resp.Migrated), "failed", len(resp.Failed))
			sendProgress(progress, batchDoneUpdate(step, total, resp.MigrationResult))
		}

		sendProgress(progress, refreshUpdate(step, total, req.TargetID))
		if _, err := refreshTarget(detached, m.executor, m.store, req.TargetID); err != nil {
			report.TargetStale = true
			logger.Warn("target refresh failed, marked stale", "batch", step, "error", err)
		} else {
			report.TargetStale = false
		}
	}

	m.finishRun(logger, run, report)
	return report, nil
}

func (m *Migrator) failBatch(report *MigrationReport, step int, batch []models.MigrationItem, err error) {
	msg := services.ErrorMessage(err)
	for _, item := range batch {
		report.Failed = append(report.Failed, models.FailedFromItem(item, msg))
	}

	be := BatchError{Batch: step, Items: len(batch), Message: msg, Err: err}
	if ee, ok := services.AsExecutorError(err); ok {
		be.Executor = ee
	}
	report.BatchErrors = append(report.BatchErrors, be)
}

// markMigrated applies one batch's migrated keys to the source in a single write.
func (m *Migrator) markMigrated(logger *log.Logger, sourceID string, keys []models.SongKey) {
	if sourceID == "" || len(keys) == 0 {
		return
	}
	source, err := m.store.Get(sourceID)
	if err != nil {
		logger.Warn("could not load source to mark migrated songs", "source", sourceID, "error", err)
		return
	}
	if err := m.store.Save(source.WithMigrated(keys...)); err != nil {
		logger.Warn("could not mark migrated songs", "source", sourceID, "error", err)
	}
}

func (m *Migrator) startRun(logger *log.Logger, req MigrateRequest, size int) *models.MigrationRun {
	if m.runs == nil {
		return nil
	}
	run := models.NewMigrationRun(req.SourceID, req.TargetID, len(req.Items), size, req.PreservePosition)
	if err := m.runs.Create(run); err != nil {
		logger.Warn("could not record migration run", "error", err)
		return nil
	}
	run.Start(m.now())
	if err := m.runs.Update(run); err != nil {
		logger.Warn("could not update migration run", "run", run.ID(), "error", err)
	}
	return run
}

func (m *Migrator) finishRun(logger *log.Logger, run *models.MigrationRun, report *MigrationReport) {
	if run == nil {
		return
	}
	var errMsg string
	if len(report.BatchErrors) > 0 {
		errMsg = report.BatchErrors[0].Message
	}
	run.Finish(m.now(), report.runStatus(), report.MigrationResult, report.Skipped, errMsg)
	if err := m.runs.Update(run); err != nil {
		logger.Warn("could not update migration run", "run", run.ID(), "error", err)
	}
}

// BuildOpts controls [BuildMigrationItems].
type BuildOpts struct {
	PreservePosition bool // set ExpectedIndex to the source index
	SkipMigrated     bool // drop songs whose key is already marked migrated
}

// BuildMigrationItems turns a selection of positional keys on source into
// migration items, in selection order. Unknown keys fail with
// [shared.ErrValidation]; songs without a comparison key are dropped.
func BuildMigrationItems(source models.Playlist, selected []string, opts BuildOpts) ([]models.MigrationItem, error) {
	index := make(map[string]int, source.Len())
	for i, k := range source.PositionalKeys() {
		index[k] = i
	}

	items := make([]models.MigrationItem, 0, len(selected))
	for _, sel := range selected {
		i, ok := index[sel]
		if !ok {
			return nil, fmt.Errorf("%w: song %q is not in playlist %s", shared.ErrValidation, sel, source.ID)
		}

		entry := source.Entry(i)
		key := models.ComparisonKey(entry)
		if !key.Valid() {
			continue
		}
		if opts.SkipMigrated && source.MigratedKeys.Has(key) {
			continue
		}

		item := models.MigrationItem{
			SourceKey: key,
			Title:     entry.Title,
			Artist:    entry.Artist,
			Album:     entry.Album,
		}
		if opts.PreservePosition {
			item.ExpectedIndex = &i
		}
		items = append(items, item)
	}
	return items, nil
}

// PositionalKeysAt maps source indices to positional keys, ignoring indices out of range.
func PositionalKeysAt(source models.Playlist, indices []int) []string {
	keys := source.PositionalKeys()
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(keys) {
			out = append(out, keys[i])
		}
	}
	return out
}
