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

// PlaylistRepository stores source and target playlists.
//
// Song arrays and key sets are JSON columns written whole on every save, so a
// stored playlist never mixes old and new song state.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `
	id, kind, name, songs, song_details, migrated_keys,
	resolved_diff_keys, songs_loaded, updated_at
`

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`

	p, err := scanPlaylist(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p, err
}

// Save inserts p or replaces the stored copy. Saving a soft-deleted playlist restores it.
func (r *PlaylistRepository) Save(p models.Playlist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	sequence, err := r.sequenceFor(p.ID)
	if err != nil {
		return err
	}

	cols, err := encodePlaylist(p)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO playlists (
			id, sequence, kind, name, songs, song_details, migrated_keys,
			resolved_diff_keys, songs_loaded, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			songs = excluded.songs,
			song_details = excluded.song_details,
			migrated_keys = excluded.migrated_keys,
			resolved_diff_keys = excluded.resolved_diff_keys,
			songs_loaded = excluded.songs_loaded,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.Exec(query,
		p.ID, sequence, string(p.Kind), p.Name,
		cols.songs, cols.details, cols.migrated, cols.resolved,
		p.SongsLoaded, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save playlist: %w", err)
	}
	return nil
}

// sequenceFor returns the stored sequence of id, allocating one for new rows.
func (r *PlaylistRepository) sequenceFor(id string) (int, error) {
	var sequence int
	err := r.db.QueryRow(`SELECT sequence FROM playlists WHERE id = ?`, id).Scan(&sequence)
	switch {
	case err == nil:
		return sequence, nil
	case errors.Is(err, sql.ErrNoRows):
		sequence, err = NextSequence(r.db, "playlists")
		if err != nil {
			return 0, fmt.Errorf("failed to generate sequence: %w", err)
		}
		return sequence, nil
	default:
		return 0, fmt.Errorf("failed to look up playlist: %w", err)
	}
}

// List retrieves playlists of kind in creation order. An empty kind lists both.
func (r *PlaylistRepository) List(kind models.PlaylistKind) ([]models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

type playlistJSON struct {
	songs, details, migrated, resolved string
}

func encodePlaylist(p models.Playlist) (playlistJSON, error) {
	var out playlistJSON
	songs := p.Songs
	if songs == nil {
		songs = []string{}
	}
	details := p.SongDetails
	if details == nil {
		details = []models.SongDetail{}
	}

	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&out.songs, songs},
		{&out.details, details},
		{&out.migrated, p.MigratedKeys},
		{&out.resolved, p.ResolvedDiffKeys},
	} {
		data, err := json.Marshal(f.v)
		if err != nil {
			return out, fmt.Errorf("failed to encode playlist %s: %w", p.ID, err)
		}
		*f.dst = string(data)
	}
	return out, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row scanner) (models.Playlist, error) {
	var (
		p         models.Playlist
		kind      string
		cols      playlistJSON
		updatedAt time.Time
	)

	err := row.Scan(
		&p.ID, &kind, &p.Name, &cols.songs, &cols.details, &cols.migrated,
		&cols.resolved, &p.SongsLoaded, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, fmt.Errorf("failed to scan playlist: %w", err)
	}

	p.Kind = models.PlaylistKind(kind)
	p.UpdatedAt = updatedAt

	for _, f := range []struct {
		src string
		dst any
	}{
		{cols.songs, &p.Songs},
		{cols.details, &p.SongDetails},
		{cols.migrated, &p.MigratedKeys},
		{cols.resolved, &p.ResolvedDiffKeys},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return p, fmt.Errorf("failed to decode playlist %s: %w", p.ID, err)
		}
	}
	return p, nil
}
