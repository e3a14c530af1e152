package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// PlaylistStore persists playlists as whole values.
//
// Get returns an error wrapping [shared.ErrPlaylistNotFound] for unknown ids.
// Implemented by repositories.PlaylistRepository.
type PlaylistStore interface {
	Get(id string) (models.Playlist, error)
	Save(p models.Playlist) error
	List(kind models.PlaylistKind) ([]models.Playlist, error)
	Delete(id string) error
}

// RunRecorder keeps migration run history.
// Implemented by repositories.MigrationRunRepository.
type RunRecorder interface {
	Create(run *models.MigrationRun) error
	Update(run *models.MigrationRun) error
}

// TargetGuard allows at most one outstanding operation per target playlist.
type TargetGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewTargetGuard() *TargetGuard {
	return &TargetGuard{busy: make(map[string]struct{})}
}

// Acquire marks targetID busy. It fails with [shared.ErrPlaylistBusy] when an
// operation on the target is already outstanding. The returned func releases it.
func (g *TargetGuard) Acquire(targetID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[targetID]; ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistBusy, targetID)
	}
	g.busy[targetID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, targetID)
			g.mu.Unlock()
		})
	}, nil
}

// loadTarget returns the stored target, or a new unloaded one for unknown ids.
func loadTarget(store PlaylistStore, targetID string) (models.Playlist, error) {
	p, err := store.Get(targetID)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return models.Playlist{ID: targetID, Name: targetID, Kind: models.TargetPlaylist}, nil
	}
	if err != nil {
		return models.Playlist{}, err
	}
	if p.Kind != models.TargetPlaylist {
		return models.Playlist{}, fmt.Errorf("%w: %s is not a target playlist", shared.ErrValidation, targetID)
	}
	return p, nil
}

// refreshTarget reloads the target's songs from the executor and stores both
// arrays whole. When the executor call fails the stored copy is marked stale
// and the error is returned.
func refreshTarget(ctx context.Context, executor services.MutationExecutor, store PlaylistStore, targetID string) (models.Playlist, error) {
	p, err := loadTarget(store, targetID)
	if err != nil {
		return models.Playlist{}, err
	}

	loaded, err := executor.PlaylistSongs(ctx, targetID)
	if err != nil {
		stale := p.MarkStale()
		if saveErr := store.Save(stale); saveErr != nil {
			return stale, errors.Join(err, saveErr)
		}
		return stale, err
	}

	songs := loaded.Songs
	for i := len(songs); i < len(loaded.SongDetails); i++ {
		songs = append(songs, models.Display(loaded.SongDetails[i]))
	}

	fresh := p.WithSongs(songs, loaded.SongDetails)
	if err := store.Save(fresh); err != nil {
		return fresh, err
	}
	return fresh, nil
}
