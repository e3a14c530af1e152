package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// MigrationRunRepository implements models.Repository[*models.MigrationRun] for run history.
type MigrationRunRepository struct {
	db *sql.DB
}

// NewMigrationRunRepository creates a new MigrationRunRepository with the given database connection
func NewMigrationRunRepository(db *sql.DB) *MigrationRunRepository {
	return &MigrationRunRepository{db: db}
}

const runColumns = `
	id, sequence, source_playlist_id, target_playlist_id, preserve_position,
	batch_size, status, items_total, items_migrated, items_failed, items_skipped,
	error_message, failures, started_at, completed_at, created_at, updated_at, deleted_at
`

// Create inserts a new run with generated ID and sequence
func (r *MigrationRunRepository) Create(run *models.MigrationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := NextSequence(r.db, "migration_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	failures, err := encodeFailures(run.Failures)
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO migration_runs (
			id, sequence, source_playlist_id, target_playlist_id, preserve_position,
			batch_size, status, items_total, items_migrated, items_failed, items_skipped,
			error_message, failures, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, run.SourcePlaylistID, run.TargetPlaylistID, run.PreservePosition,
		run.BatchSize, string(run.Status), run.ItemsTotal, run.ItemsMigrated, run.ItemsFailed, run.ItemsSkipped,
		nullString(run.ErrorMessage), failures, run.StartedAt, run.CompletedAt, run.CreatedAt(), run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert migration run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *MigrationRunRepository) Get(id string) (*models.MigrationRun, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, err
}

// Update writes the run's progress and outcome
func (r *MigrationRunRepository) Update(run *models.MigrationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	failures, err := encodeFailures(run.Failures)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE migration_runs
		SET status = ?, items_total = ?, items_migrated = ?, items_failed = ?,
			items_skipped = ?, error_message = ?, failures = ?, started_at = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status), run.ItemsTotal, run.ItemsMigrated, run.ItemsFailed,
		run.ItemsSkipped, nullString(run.ErrorMessage), failures, run.StartedAt,
		run.CompletedAt, now, run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update migration run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}

	run.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a run by ID
func (r *MigrationRunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE migration_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete migration run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

// List retrieves runs newest first.
//
// Supported criteria: "source_playlist_id", "target_playlist_id" and "status"
// (strings) and "limit" (int).
func (r *MigrationRunRepository) List(criteria map[string]any) ([]*models.MigrationRun, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE deleted_at IS NULL`
	args := []any{}

	for _, col := range []string{"source_playlist_id", "target_playlist_id", "status"} {
		if v, ok := criteria[col].(string); ok && v != "" {
			query += " AND " + col + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MigrationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func encodeFailures(failures []models.FailedSong) (string, error) {
	if failures == nil {
		failures = []models.FailedSong{}
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return "", fmt.Errorf("failed to encode failures: %w", err)
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanRun(row scanner) (*models.MigrationRun, error) {
	var (
		id           string
		sequence     int
		sourceID     string
		targetID     string
		preserve     bool
		batchSize    int
		status       string
		total        int
		migrated     int
		failed       int
		skipped      int
		errorMessage sql.NullString
		failures     string
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sourceID, &targetID, &preserve,
		&batchSize, &status, &total, &migrated, &failed, &skipped,
		&errorMessage, &failures, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration run: %w", err)
	}

	run := models.NewMigrationRun(sourceID, targetID, total, batchSize, preserve)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	run.Status = models.RunStatus(status)
	run.ItemsMigrated = migrated
	run.ItemsFailed = failed
	run.ItemsSkipped = skipped
	run.ErrorMessage = errorMessage.String

	if err := json.Unmarshal([]byte(failures), &run.Failures); err != nil {
		return nil, fmt.Errorf("failed to decode failures of run %s: %w", id, err)
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
