package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// ServiceOpts configures a [Service].
type ServiceOpts struct {
	Runs      RunRecorder // optional migration history
	BatchSize int         // default batch size for RunMigration
	Logger    *log.Logger
}

// Service is the consumer API over stored playlists, the executor and the
// orchestrator. The CLI and HTTP server both call into it.
type Service struct {
	store     PlaylistStore
	executor  services.MutationExecutor
	migrator  *Migrator
	mutator   *Mutator
	batchSize int
	logger    *log.Logger
}

// NewService creates a Service. The migrator and mutator share one [TargetGuard].
func NewService(store PlaylistStore, executor services.MutationExecutor, opts ServiceOpts) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	guard := NewTargetGuard()
	return &Service{
		store:     store,
		executor:  executor,
		migrator:  NewMigrator(executor, store, MigratorOpts{Runs: opts.Runs, Guard: guard, Logger: logger}),
		mutator:   NewMutator(executor, store, MutatorOpts{Guard: guard, Logger: logger}),
		batchSize: opts.BatchSize,
		logger:    logger,
	}
}

// DiffReport pairs a reconciliation with the playlists it was computed from.
type DiffReport struct {
	Source  models.Playlist `json:"source"`
	Target  models.Playlist `json:"target"`
	Result  DiffResult      `json:"result"`
	Visible []DiffStatus    `json:"visible"`
}

func (s *Service) playlistOfKind(id string, kind models.PlaylistKind) (models.Playlist, error) {
	p, err := s.store.Get(id)
	if err != nil {
		return models.Playlist{}, err
	}
	if p.Kind != kind {
		return models.Playlist{}, fmt.Errorf("%w: %s is a %s playlist, expected %s", shared.ErrValidation, id, p.Kind, kind)
	}
	return p, nil
}

// Playlist returns a stored playlist.
func (s *Service) Playlist(id string) (models.Playlist, error) {
	return s.store.Get(id)
}

// Playlists lists stored playlists of kind, or all when kind is empty.
func (s *Service) Playlists(kind models.PlaylistKind) ([]models.Playlist, error) {
	return s.store.List(kind)
}

// GetDiff reconciles a source against a target. It fails with
// [shared.ErrTargetNotLoaded] while the target's songs are stale.
func (s *Service) GetDiff(sourceID, targetID string) (*DiffReport, error) {
	source, err := s.playlistOfKind(sourceID, models.SourcePlaylist)
	if err != nil {
		return nil, err
	}
	target, err := s.playlistOfKind(targetID, models.TargetPlaylist)
	if err != nil {
		return nil, err
	}
	if !target.SongsLoaded {
		return nil, fmt.Errorf("%w: %s", shared.ErrTargetNotLoaded, targetID)
	}

	result := ReconcilePlaylists(source, target)
	return &DiffReport{
		Source:  source,
		Target:  target,
		Result:  result,
		Visible: VisibleStatuses(result, source.ResolvedDiffKeys),
	}, nil
}

// MigrationRequest is a user selection to migrate.
type MigrationRequest struct {
	SourceID         string   `json:"sourceId"`
	TargetID         string   `json:"targetId"`
	SelectedKeys     []string `json:"selectedKeys"`
	PreservePosition bool     `json:"preservePosition"`
	SkipMigrated     bool     `json:"skipMigrated"`
	BatchSize        int      `json:"batchSize,omitempty"`
}

// RunMigration migrates the selected source songs into the target.
//
// Already migrated songs are sent again unless SkipMigrated is set. A
// selection that filters down to nothing is a no-op report, not an error.
func (s *Service) RunMigration(ctx context.Context, req MigrationRequest, progress chan<- ProgressUpdate) (*MigrationReport, error) {
	if strings.TrimSpace(req.TargetID) == "" {
		return nil, fmt.Errorf("%w: target playlist id is required", shared.ErrValidation)
	}
	if len(req.SelectedKeys) == 0 {
		return nil, fmt.Errorf("%w: no songs selected for migration", shared.ErrValidation)
	}
	source, err := s.playlistOfKind(req.SourceID, models.SourcePlaylist)
	if err != nil {
		return nil, err
	}

	items, err := BuildMigrationItems(source, req.SelectedKeys, BuildOpts{
		PreservePosition: req.PreservePosition,
		SkipMigrated:     req.SkipMigrated,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &MigrationReport{SourceID: req.SourceID, TargetID: req.TargetID}, nil
	}

	size := req.BatchSize
	if size < 1 {
		size = s.batchSize
	}
	return s.migrator.Migrate(ctx, MigrateRequest{
		SourceID:         req.SourceID,
		TargetID:         req.TargetID,
		Items:            items,
		PreservePosition: req.PreservePosition,
		BatchSize:        size,
	}, progress)
}

// InsertByKeyRequest places a song stored on FromID at Index of TargetID.
// FromID defaults to the target itself, which relocates an existing entry.
type InsertByKeyRequest struct {
	TargetID      string `json:"targetId"`
	FromID        string `json:"fromId,omitempty"`
	PositionalKey string `json:"key"`
	Index         int    `json:"index"`
}

func (s *Service) InsertByKey(ctx context.Context, req InsertByKeyRequest) (*services.InsertResult, error) {
	if err := requireTarget(req.TargetID); err != nil {
		return nil, err
	}
	if req.Index < 0 {
		return nil, fmt.Errorf("%w: expected index must be a non-negative integer, got %d", shared.ErrValidation, req.Index)
	}
	from := req.FromID
	if from == "" {
		from = req.TargetID
	}
	p, err := s.store.Get(from)
	if err != nil {
		return nil, err
	}
	ref, err := ResolveRef(p, req.PositionalKey)
	if err != nil {
		return nil, err
	}
	return s.mutator.InsertAt(ctx, req.TargetID, ref, req.Index)
}

// MoveByKey moves the target song at positionalKey.
func (s *Service) MoveByKey(ctx context.Context, targetID, positionalKey string, direction services.Direction, positions int) (*services.MoveResult, error) {
	target, err := s.playlistOfKind(targetID, models.TargetPlaylist)
	if err != nil {
		return nil, err
	}
	ref, err := ResolveRef(target, positionalKey)
	if err != nil {
		return nil, err
	}
	return s.mutator.MoveSong(ctx, targetID, ref, direction, positions)
}

// RemoveByKeys removes the target songs at positionalKeys. Every key must
// resolve before anything is sent.
func (s *Service) RemoveByKeys(ctx context.Context, targetID string, positionalKeys []string) (*services.RemoveResult, error) {
	if len(positionalKeys) == 0 {
		return nil, fmt.Errorf("%w: no songs selected for removal", shared.ErrValidation)
	}
	target, err := s.playlistOfKind(targetID, models.TargetPlaylist)
	if err != nil {
		return nil, err
	}
	refs := make([]models.ProviderRef, 0, len(positionalKeys))
	for _, key := range positionalKeys {
		ref, err := ResolveRef(target, key)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return s.mutator.RemoveSongs(ctx, targetID, refs)
}

// FixPosition moves a shifted song on the target back to its source index.
func (s *Service) FixPosition(ctx context.Context, sourceID, targetID string, sourceIndex int) (*services.InsertResult, error) {
	diff, err := s.GetDiff(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if sourceIndex < 0 || sourceIndex >= len(diff.Result.Statuses) {
		return nil, fmt.Errorf("%w: source index %d out of range", shared.ErrValidation, sourceIndex)
	}
	status := diff.Result.Statuses[sourceIndex]
	if status.Kind != DiffShifted {
		return nil, fmt.Errorf("%w: song %d is %s, not shifted", shared.ErrValidation, sourceIndex, status.Kind)
	}

	d, ok := diff.Target.Detail(status.ActualIndex)
	if !ok || strings.TrimSpace(d.VideoID) == "" {
		return nil, fmt.Errorf("%w: target song %d has no video id", shared.ErrUnresolvedReference, status.ActualIndex)
	}
	return s.mutator.InsertAt(ctx, targetID, d.ProviderRef, status.ExpectedIndex)
}

// ImportSource stores every playlist in an extractor document as a source.
// Re-importing an id keeps its migrated and resolved markers.
func (s *Service) ImportSource(data []byte) ([]models.Playlist, error) {
	docs, err := ParseSourceDocuments(data)
	if err != nil {
		return nil, err
	}

	imported := make([]models.Playlist, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.Playlist()
		if err != nil {
			return imported, err
		}

		existing, err := s.store.Get(p.ID)
		switch {
		case err == nil && existing.Kind != models.SourcePlaylist:
			return imported, fmt.Errorf("%w: %s is already stored as a %s playlist", shared.ErrValidation, p.ID, existing.Kind)
		case err == nil:
			p.MigratedKeys = existing.MigratedKeys.Clone()
			p.ResolvedDiffKeys = existing.ResolvedDiffKeys.Clone()
		case !errors.Is(err, shared.ErrPlaylistNotFound):
			return imported, err
		}

		if err := s.store.Save(p); err != nil {
			return imported, err
		}
		s.logger.Info("imported source playlist", "id", p.ID, "name", p.Name, "songs", p.Len())
		imported = append(imported, p)
	}
	return imported, nil
}

// SyncTargets stores the executor's playlist list. Known targets keep their
// songs; with loadSongs every target is refreshed as well.
func (s *Service) SyncTargets(ctx context.Context, loadSongs bool, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	sendProgress(progress, ProgressUpdate{Phase: LoadPlaylists, Step: 0, Total: 1, Message: "Loading target playlists..."})
	summaries, err := s.executor.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Playlist, 0, len(summaries))
	for i, sum := range summaries {
		p, err := loadTarget(s.store, sum.ID)
		if err != nil {
			return out, err
		}
		p.Name = sum.Name
		if err := s.store.Save(p); err != nil {
			return out, err
		}

		if loadSongs {
			sendProgress(progress, syncTargetUpdate(i+1, len(summaries), sum.Name))
			if p, err = refreshTarget(ctx, s.executor, s.store, sum.ID); err != nil {
				s.logger.Warn("could not load target songs", "target", sum.ID, "error", err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// RefreshTarget reloads one target's songs. On failure the target is marked stale.
func (s *Service) RefreshTarget(ctx context.Context, targetID string) (models.Playlist, error) {
	if err := requireTarget(targetID); err != nil {
		return models.Playlist{}, err
	}
	return refreshTarget(ctx, s.executor, s.store, targetID)
}

// CreateTarget creates an empty playlist on the provider and stores it.
func (s *Service) CreateTarget(ctx context.Context, name, description string) (models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}
	created, err := s.executor.CreatePlaylist(ctx, name, description)
	if err != nil {
		return models.Playlist{}, err
	}

	p := models.Playlist{ID: created.ID, Name: created.Name, Kind: models.TargetPlaylist}.WithSongs(nil, nil)
	if p.Name == "" {
		p.Name = name
	}
	if err := s.store.Save(p); err != nil {
		return p, err
	}
	return p, nil
}

// DeleteTarget deletes the playlist on the provider and drops the stored copy.
func (s *Service) DeleteTarget(ctx context.Context, targetID string) error {
	if err := requireTarget(targetID); err != nil {
		return err
	}
	if err := s.executor.DeletePlaylist(ctx, targetID); err != nil {
		return err
	}
	if err := s.store.Delete(targetID); err != nil && !errors.Is(err, shared.ErrPlaylistNotFound) {
		return err
	}
	return nil
}

// DeleteSource drops a stored source playlist.
func (s *Service) DeleteSource(sourceID string) error {
	if _, err := s.playlistOfKind(sourceID, models.SourcePlaylist); err != nil {
		return err
	}
	return s.store.Delete(sourceID)
}

// updateSource applies fn to a stored source playlist and saves the result.
func (s *Service) updateSource(sourceID string, fn func(models.Playlist) models.Playlist) (models.Playlist, error) {
	p, err := s.playlistOfKind(sourceID, models.SourcePlaylist)
	if err != nil {
		return models.Playlist{}, err
	}
	p = fn(p)
	if err := s.store.Save(p); err != nil {
		return models.Playlist{}, err
	}
	return p, nil
}

func (s *Service) MarkMigrated(sourceID string, keys ...models.SongKey) (models.Playlist, error) {
	return s.updateSource(sourceID, func(p models.Playlist) models.Playlist { return p.WithMigrated(keys...) })
}

func (s *Service) UnmarkMigrated(sourceID string, keys ...models.SongKey) (models.Playlist, error) {
	return s.updateSource(sourceID, func(p models.Playlist) models.Playlist { return p.WithoutMigrated(keys...) })
}

// ResolveDiff hides the keys' statuses from future diffs without changing summaries.
func (s *Service) ResolveDiff(sourceID string, keys ...models.SongKey) (models.Playlist, error) {
	return s.updateSource(sourceID, func(p models.Playlist) models.Playlist { return p.WithResolved(keys...) })
}

func (s *Service) UnresolveDiff(sourceID string, keys ...models.SongKey) (models.Playlist, error) {
	return s.updateSource(sourceID, func(p models.Playlist) models.Playlist { return p.WithoutResolved(keys...) })
}

// KeysAt returns the comparison keys of the songs at indices, skipping songs
// without a key and indices out of range.
func KeysAt(p models.Playlist, indices []int) []models.SongKey {
	keys := make([]models.SongKey, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= p.Len() {
			continue
		}
		if k := p.Key(i); k.Valid() {
			keys = append(keys, k)
		}
	}
	return keys
}

// ExecutorStatus reports whether the executor is reachable and authenticated.
func (s *Service) ExecutorStatus(ctx context.Context) (*services.StatusResult, error) {
	return s.executor.Status(ctx)
}
