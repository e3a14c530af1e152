package models

import (
	"fmt"
	"time"
)

// MigrationItem is one song queued for migration.
//
// ExpectedIndex is set when the song should land at a specific target position.
type MigrationItem struct {
	SourceKey     SongKey `json:"songKey"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	ExpectedIndex *int    `json:"expectedIndex,omitempty"`
}

// MigratedSong is an item the executor added to the target.
type MigratedSong struct {
	SourceKey      SongKey `json:"songKey"`
	Title          string  `json:"title"`
	Artist         string  `json:"artist"`
	Album          string  `json:"album"`
	ExpectedIndex  *int    `json:"expectedIndex,omitempty"`
	VideoID        string  `json:"videoId,omitempty"`
	MatchedTitle   string  `json:"matchedTitle,omitempty"`
	MatchedArtists string  `json:"matchedArtists,omitempty"`
}

// FailedSong is an item that could not be migrated. SourceKey may be empty.
type FailedSong struct {
	SourceKey SongKey `json:"songKey,omitempty"`
	Title     string  `json:"title,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Album     string  `json:"album,omitempty"`
	Error     string  `json:"error"`
}

// FailedFromItem builds a [FailedSong] for item carrying msg.
func FailedFromItem(item MigrationItem, msg string) FailedSong {
	return FailedSong{
		SourceKey: item.SourceKey,
		Title:     item.Title,
		Artist:    item.Artist,
		Album:     item.Album,
		Error:     msg,
	}
}

// MigrationResult accumulates executor outcomes.
type MigrationResult struct {
	Migrated []MigratedSong `json:"migrated"`
	Failed   []FailedSong   `json:"failed"`
}

// Merge appends other onto r.
func (r *MigrationResult) Merge(other MigrationResult) {
	r.Migrated = append(r.Migrated, other.Migrated...)
	r.Failed = append(r.Failed, other.Failed...)
}

// MigratedKeys returns the valid source keys of every migrated song in order.
func (r MigrationResult) MigratedKeys() []SongKey {
	keys := make([]SongKey, 0, len(r.Migrated))
	for _, m := range r.Migrated {
		if m.SourceKey.Valid() {
			keys = append(keys, m.SourceKey)
		}
	}
	return keys
}

// RunStatus is the lifecycle state of a [MigrationRun].
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether s ends a run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunPartial, RunFailed, RunCancelled:
		return true
	}
	return false
}

// MigrationRun records one orchestrator invocation. SourcePlaylistID is empty
// for runs started without a stored source.
type MigrationRun struct {
	id               string
	sequence         int
	SourcePlaylistID string
	TargetPlaylistID string
	PreservePosition bool
	BatchSize        int
	Status           RunStatus
	ItemsTotal       int
	ItemsMigrated    int
	ItemsFailed      int
	ItemsSkipped     int
	ErrorMessage     string
	Failures         []FailedSong
	StartedAt        *time.Time
	CompletedAt      *time.Time
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewMigrationRun creates a pending run.
func NewMigrationRun(sourceID, targetID string, total, batchSize int, preserve bool) *MigrationRun {
	now := time.Now()
	return &MigrationRun{
		SourcePlaylistID: sourceID,
		TargetPlaylistID: targetID,
		PreservePosition: preserve,
		BatchSize:        batchSize,
		Status:           RunPending,
		ItemsTotal:       total,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (m *MigrationRun) ID() string { return m.id }
func (m *MigrationRun) SetID(id string) { m.id = id }
func (m *MigrationRun) Sequence() int { return m.sequence }
func (m *MigrationRun) SetSequence(seq int) { m.sequence = seq }
func (m *MigrationRun) CreatedAt() time.Time { return m.createdAt }
func (m *MigrationRun) SetCreatedAt(t time.Time) { m.createdAt = t }
func (m *MigrationRun) UpdatedAt() time.Time { return m.updatedAt }
func (m *MigrationRun) SetUpdatedAt(t time.Time) { m.updatedAt = t }
func (m *MigrationRun) DeletedAt() *time.Time { return m.deletedAt }
func (m *MigrationRun) SetDeletedAt(t *time.Time) { m.deletedAt = t }
func (m *MigrationRun) IsDeleted() bool { return m.deletedAt != nil }
func (m *MigrationRun) Processed() int { return m.ItemsMigrated + m.ItemsFailed + m.ItemsSkipped }

func (m *MigrationRun) FirstFailure() (FailedSong, bool) {
	if len(m.Failures) == 0 {
		return FailedSong{}, false
	}
	return m.Failures[0], true
}

// Start moves a pending run to running.
func (m *MigrationRun) Start(at time.Time) {
	m.Status = RunRunning
	m.StartedAt = &at
}

// Finish records the outcome and the terminal status.
func (m *MigrationRun) Finish(at time.Time, status RunStatus, result MigrationResult, skipped int, errMsg string) {
	m.Status = status
	m.ItemsMigrated = len(result.Migrated)
	m.ItemsFailed = len(result.Failed)
	m.ItemsSkipped = skipped
	m.Failures = result.Failed
	m.ErrorMessage = errMsg
	m.CompletedAt = &at
}

// Validate checks if the run's data is valid.
func (m *MigrationRun) Validate() error {
	if m.TargetPlaylistID == "" {
		return fmt.Errorf("target playlist id is required")
	}
	if m.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	switch m.Status {
	case RunPending, RunRunning, RunCompleted, RunPartial, RunFailed, RunCancelled:
	default:
		return fmt.Errorf("invalid status %q", m.Status)
	}
	if m.ItemsTotal < 0 || m.ItemsMigrated < 0 || m.ItemsFailed < 0 || m.ItemsSkipped < 0 {
		return fmt.Errorf("item counts must not be negative")
	}
	return nil
}

// RunView is the JSON shape of a [MigrationRun].
type RunView struct {
	ID               string       `json:"id"`
	SourcePlaylistID string       `json:"sourcePlaylistId,omitempty"`
	TargetPlaylistID string       `json:"targetPlaylistId"`
	Status           RunStatus    `json:"status"`
	PreservePosition bool         `json:"preservePosition"`
	BatchSize        int          `json:"batchSize"`
	ItemsTotal       int          `json:"itemsTotal"`
	ItemsMigrated    int          `json:"itemsMigrated"`
	ItemsFailed      int          `json:"itemsFailed"`
	ItemsSkipped     int          `json:"itemsSkipped"`
	ErrorMessage     string       `json:"errorMessage,omitempty"`
	Failures         []FailedSong `json:"failures"`
	CreatedAt        string       `json:"createdAt"`
}

func (m *MigrationRun) View() RunView {
	failures := m.Failures
	if failures == nil {
		failures = []FailedSong{}
	}
	return RunView{
		ID:               m.id,
		SourcePlaylistID: m.SourcePlaylistID,
		TargetPlaylistID: m.TargetPlaylistID,
		Status:           m.Status,
		PreservePosition: m.PreservePosition,
		BatchSize:        m.BatchSize,
		ItemsTotal:       m.ItemsTotal,
		ItemsMigrated:    m.ItemsMigrated,
		ItemsFailed:      m.ItemsFailed,
		ItemsSkipped:     m.ItemsSkipped,
		ErrorMessage:     m.ErrorMessage,
		Failures:         failures,
		CreatedAt:        m.createdAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
