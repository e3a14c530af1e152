// package services defines the MutationExecutor boundary to the music provider
// and its implementations.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Action is the executor request discriminator.
type Action string

const (
	ActionStatus         Action = "status"
	ActionPlaylists      Action = "playlists"
	ActionCreatePlaylist Action = "createPlaylist"
	ActionDeletePlaylist Action = "deletePlaylist"
	ActionPlaylistSongs  Action = "playlistSongs"
	ActionRemoveItems    Action = "removePlaylistItems"
	ActionInsertVideo    Action = "insertVideoAtPosition"
	ActionMoveSong       Action = "movePlaylistSong"
	ActionMigrate        Action = "migrate"
)

// Direction of a move-by-offset.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("%w: direction must be either 'up' or 'down', got %q", shared.ErrValidation, s)
}

// MutationExecutor performs provider calls, one method per executor action.
//
// Implementations return [*ExecutorError] when the executor reports ok:false and
// errors wrapping [shared.ErrExecutorTransport] when it cannot be reached or
// produces no usable output.
type MutationExecutor interface {
	Status(ctx context.Context) (*StatusResult, error)
	Playlists(ctx context.Context) ([]PlaylistSummary, error)
	CreatePlaylist(ctx context.Context, name, description string) (*PlaylistSummary, error)
	DeletePlaylist(ctx context.Context, playlistID string) error
	PlaylistSongs(ctx context.Context, playlistID string) (*PlaylistSongs, error)
	RemovePlaylistItems(ctx context.Context, playlistID string, refs []models.ProviderRef) (*RemoveResult, error)
	InsertVideoAtPosition(ctx context.Context, playlistID, videoID string, expectedIndex int) (*InsertResult, error)
	MovePlaylistSong(ctx context.Context, playlistID string, ref models.ProviderRef, direction Direction, positions int) (*MoveResult, error)
	Migrate(ctx context.Context, req MigrateRequest) (*MigrateResponse, error)
}

// StatusResult is the reply to [ActionStatus].
type StatusResult struct {
	Connected bool `json:"connected"`
}

// PlaylistSummary is a target playlist as listed by the executor.
type PlaylistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistSongs holds the index aligned song arrays of one playlist.
type PlaylistSongs struct {
	Songs       []string            `json:"songs"`
	SongDetails []models.SongDetail `json:"songDetails"`
}

// InsertResult reports where an inserted video ended up.
type InsertResult struct {
	PlaylistID    string `json:"playlistId"`
	VideoID       string `json:"videoId"`
	InsertedIndex int    `json:"insertedIndex"`
	Moved         bool   `json:"moved"`
}

// MoveResult reports a move-by-offset. Moved is false for a no-op at a boundary.
type MoveResult struct {
	PlaylistID string `json:"playlistId"`
	Moved      bool   `json:"moved"`
	FromIndex  int    `json:"fromIndex"`
	ToIndex    int    `json:"toIndex"`
}

// RemoveResult reports how many entries were removed.
type RemoveResult struct {
	PlaylistID   string `json:"playlistId"`
	DeletedCount int    `json:"deletedCount"`
}

// MigrateRequest is the payload of [ActionMigrate].
type MigrateRequest struct {
	PlaylistID       string                 `json:"playlistId"`
	Songs            []models.MigrationItem `json:"songs"`
	PreservePosition bool                   `json:"preservePosition"`
	Debug            bool                   `json:"debug,omitempty"`
}

// MigrateResponse is the reply to [ActionMigrate].
type MigrateResponse struct {
	PlaylistID string `json:"playlistId"`
	models.MigrationResult
	Debug json.RawMessage `json:"debug,omitempty"`
}
