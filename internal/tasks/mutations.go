package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// ResolveRef looks up the provider reference stored for the song at positionalKey.
//
// It fails with [shared.ErrUnresolvedReference] when the key is unknown, the
// index has no stored detail, or the detail carries neither provider id.
func ResolveRef(p models.Playlist, positionalKey string) (models.ProviderRef, error) {
	i, ok := p.IndexOf(positionalKey)
	if !ok {
		return models.ProviderRef{}, fmt.Errorf("%w: song %q is not in playlist %s", shared.ErrUnresolvedReference, positionalKey, p.ID)
	}
	d, ok := p.Detail(i)
	if !ok || !d.Addressable() {
		return models.ProviderRef{}, fmt.Errorf("%w: song %d of playlist %s, refresh the playlist and retry", shared.ErrUnresolvedReference, i, p.ID)
	}
	return d.ProviderRef, nil
}

// MutatorOpts configures a [Mutator].
type MutatorOpts struct {
	Guard  *TargetGuard
	Logger *log.Logger
}

// Mutator validates playlist edits locally, forwards them to the executor and
// refreshes the target afterwards.
type Mutator struct {
	executor services.MutationExecutor
	store    PlaylistStore
	guard    *TargetGuard
	logger   *log.Logger
}

func NewMutator(executor services.MutationExecutor, store PlaylistStore, opts MutatorOpts) *Mutator {
	m := &Mutator{executor: executor, store: store, guard: opts.Guard, logger: opts.Logger}
	if m.guard == nil {
		m.guard = NewTargetGuard()
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	return m
}

func requireTarget(targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("%w: target playlist id is required", shared.ErrValidation)
	}
	return nil
}

// apply runs call while holding the target and refreshes the target afterwards.
// A failed refresh marks the target stale and is only logged.
func (m *Mutator) apply(ctx context.Context, targetID, op string, call func() error) error {
	release, err := m.guard.Acquire(targetID)
	if err != nil {
		return err
	}
	defer release()

	logger := shared.WithLogger(m.logger, "target", targetID, "op", op)
	if err := call(); err != nil {
		logger.Error("mutation failed", "error", err)
		return err
	}

	if _, err := refreshTarget(ctx, m.executor, m.store, targetID); err != nil {
		logger.Warn("target refresh failed, marked stale", "error", err)
	}
	return nil
}

// InsertAt places ref's video at expectedIndex, appending or relocating it.
func (m *Mutator) InsertAt(ctx context.Context, targetID string, ref models.ProviderRef, expectedIndex int) (*services.InsertResult, error) {
	if err := requireTarget(targetID); err != nil {
		return nil, err
	}
	if expectedIndex < 0 {
		return nil, fmt.Errorf("%w: expected index must be a non-negative integer, got %d", shared.ErrValidation, expectedIndex)
	}
	if strings.TrimSpace(ref.VideoID) == "" {
		return nil, fmt.Errorf("%w: insert needs a video id", shared.ErrUnresolvedReference)
	}

	var res *services.InsertResult
	err := m.apply(ctx, targetID, "insert", func() (err error) {
		res, err = m.executor.InsertVideoAtPosition(ctx, targetID, ref.VideoID, expectedIndex)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MoveSong moves ref by positions in direction. Positions below 1 count as 1.
// A song already at the boundary yields Moved=false.
func (m *Mutator) MoveSong(ctx context.Context, targetID string, ref models.ProviderRef, direction services.Direction, positions int) (*services.MoveResult, error) {
	if err := requireTarget(targetID); err != nil {
		return nil, err
	}
	if direction != services.Up && direction != services.Down {
		return nil, fmt.Errorf("%w: direction must be either 'up' or 'down', got %q", shared.ErrValidation, direction)
	}
	if !ref.Addressable() {
		return nil, fmt.Errorf("%w: move needs a set video id or video id", shared.ErrUnresolvedReference)
	}
	if positions < 1 {
		positions = 1
	}

	var res *services.MoveResult
	err := m.apply(ctx, targetID, "move", func() (err error) {
		res, err = m.executor.MovePlaylistSong(ctx, targetID, ref, direction, positions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveSongs removes refs from the target. Entries without a provider id are
// dropped before the call; at least one must remain.
func (m *Mutator) RemoveSongs(ctx context.Context, targetID string, refs []models.ProviderRef) (*services.RemoveResult, error) {
	if err := requireTarget(targetID); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no songs selected for removal", shared.ErrValidation)
	}

	addressable := make([]models.ProviderRef, 0, len(refs))
	for _, r := range refs {
		if r.Addressable() {
			addressable = append(addressable, r)
		}
	}
	if len(addressable) == 0 {
		return nil, fmt.Errorf("%w: none of the %d songs has a set video id or video id", shared.ErrValidation, len(refs))
	}

	var res *services.RemoveResult
	err := m.apply(ctx, targetID, "remove", func() (err error) {
		res, err = m.executor.RemovePlaylistItems(ctx, targetID, addressable)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
