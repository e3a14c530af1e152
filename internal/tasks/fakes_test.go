package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// memStore is an in-memory [PlaylistStore].
type memStore struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
	order     []string
	saves     int
	saveErr   error
}

func newMemStore(playlists ...models.Playlist) *memStore {
	s := &memStore{playlists: make(map[string]models.Playlist)}
	for _, p := range playlists {
		s.put(p)
	}
	return s
}

func (s *memStore) put(p models.Playlist) {
	if _, ok := s.playlists[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.playlists[p.ID] = p.Clone()
}

func (s *memStore) Get(id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p.Clone(), nil
}

func (s *memStore) Save(p models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.saves++
	s.put(p)
	return nil
}

func (s *memStore) List(kind models.PlaylistKind) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Playlist
	for _, id := range s.order {
		if p, ok := s.playlists[id]; ok && (kind == "" || p.Kind == kind) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *memStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	delete(s.playlists, id)
	return nil
}

func (s *memStore) mustGet(t *testing.T, id string) models.Playlist {
	t.Helper()
	p, err := s.Get(id)
	if err != nil {
		t.Fatalf("failed to get %s: %v", id, err)
	}
	return p
}

// scriptedExecutor wraps a MemoryExecutor and scripts migrate calls by call number.
type scriptedExecutor struct {
	*services.MemoryExecutor

	mu          sync.Mutex
	batches     [][]models.MigrationItem
	failOn      map[int]error // 1-based migrate call number
	onMigrate   func(call int)
	refreshFail bool
}

func newScriptedExecutor(catalog []services.Candidate) *scriptedExecutor {
	return &scriptedExecutor{MemoryExecutor: services.NewMemoryExecutor(catalog), failOn: make(map[int]error)}
}

func (e *scriptedExecutor) Migrate(ctx context.Context, req services.MigrateRequest) (*services.MigrateResponse, error) {
	e.mu.Lock()
	e.batches = append(e.batches, req.Songs)
	call := len(e.batches)
	err := e.failOn[call]
	hook := e.onMigrate
	e.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return e.MemoryExecutor.Migrate(ctx, req)
}

func (e *scriptedExecutor) PlaylistSongs(ctx context.Context, id string) (*services.PlaylistSongs, error) {
	if e.refreshFail {
		return nil, errors.New("refresh unavailable")
	}
	return e.MemoryExecutor.PlaylistSongs(ctx, id)
}

func (e *scriptedExecutor) batchSizes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, len(e.batches))
	for i, b := range e.batches {
		out[i] = len(b)
	}
	return out
}

// memRuns is an in-memory [RunRecorder].
type memRuns struct {
	runs    map[string]models.MigrationRun
	updates []models.RunStatus
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[string]models.MigrationRun)}
}

func (r *memRuns) Create(run *models.MigrationRun) error {
	run.SetID(fmt.Sprintf("run-%d", len(r.runs)+1))
	r.runs[run.ID()] = *run
	return nil
}

func (r *memRuns) Update(run *models.MigrationRun) error {
	r.runs[run.ID()] = *run
	r.updates = append(r.updates, run.Status)
	return nil
}

// songCatalog builds a catalog and a source playlist with n songs "Song 01".."Song n".
func songCatalog(n int) ([]services.Candidate, models.Playlist) {
	catalog := make([]services.Candidate, n)
	songs := make([]string, n)
	for i := range n {
		title := fmt.Sprintf("Song %02d", i+1)
		catalog[i] = services.Candidate{VideoID: fmt.Sprintf("v%02d", i+1), Title: title, Artists: []string{"Artist"}}
		songs[i] = "Artist - " + title
	}
	source := models.Playlist{ID: "SRC", Name: "Source", Kind: models.SourcePlaylist}.WithSongs(songs, nil)
	return catalog, source
}

func itemsFor(t *testing.T, source models.Playlist, preserve bool) []models.MigrationItem {
	t.Helper()
	items, err := BuildMigrationItems(source, source.PositionalKeys(), BuildOpts{PreservePosition: preserve})
	if err != nil {
		t.Fatalf("failed to build items: %v", err)
	}
	return items
}
