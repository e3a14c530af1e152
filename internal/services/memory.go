package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// MemoryExecutor is an in-process [MutationExecutor] that keeps playlists in
// memory and searches a fixed catalog. It follows the executor's move, insert
// and migrate semantics, which makes it usable for dry runs and tests.
type MemoryExecutor struct {
	mu        sync.Mutex
	catalog   []Candidate
	playlists map[string]*memoryPlaylist
	order     []string
	nextID    int
	calls     []Action
	failures  map[Action][]error
}

type memoryPlaylist struct {
	id     string
	name   string
	tracks []models.SongDetail
}

// NewMemoryExecutor creates an executor whose searches run against catalog.
func NewMemoryExecutor(catalog []Candidate) *MemoryExecutor {
	return &MemoryExecutor{
		catalog:   slices.Clone(catalog),
		playlists: make(map[string]*memoryPlaylist),
		failures:  make(map[Action][]error),
	}
}

// Seed creates or replaces playlist id with the given tracks. Missing
// SetVideoIDs are generated.
func (m *MemoryExecutor) Seed(id, name string, tracks ...models.SongDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &memoryPlaylist{id: id, name: name}
	for _, t := range tracks {
		if t.SetVideoID == "" {
			t.SetVideoID = m.newSetVideoID()
		}
		p.tracks = append(p.tracks, t)
	}
	if _, ok := m.playlists[id]; !ok {
		m.order = append(m.order, id)
	}
	m.playlists[id] = p
}

// FailNext queues err as the result of the next call to action.
func (m *MemoryExecutor) FailNext(action Action, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[action] = append(m.failures[action], err)
}

// Calls lists every action received, in order.
func (m *MemoryExecutor) Calls() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Tracks returns a copy of playlist id's entries.
func (m *MemoryExecutor) Tracks(id string) []models.SongDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.playlists[id]; ok {
		return slices.Clone(p.tracks)
	}
	return nil
}

func (m *MemoryExecutor) newSetVideoID() string {
	m.nextID++
	return fmt.Sprintf("SV%04d", m.nextID)
}

// begin records action and pops a queued failure. Callers hold m.mu.
func (m *MemoryExecutor) begin(ctx context.Context, action Action) error {
	m.calls = append(m.calls, action)
	if err := ctx.Err(); err != nil {
		return transportError(action, "%v", err)
	}
	if q := m.failures[action]; len(q) > 0 {
		m.failures[action] = q[1:]
		return q[0]
	}
	return nil
}

func (m *MemoryExecutor) playlist(action Action, id string) (*memoryPlaylist, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidInput(action, "playlistId is required.")
	}
	p, ok := m.playlists[id]
	if !ok {
		return nil, &ExecutorError{Action: action, Status: 404, Code: "playlist_load_failed", Message: "Playlist not found.", Details: id}
	}
	return p, nil
}

func invalidInput(action Action, msg string) *ExecutorError {
	return &ExecutorError{Action: action, Status: 400, Code: "invalid_input", Message: msg}
}

func (m *MemoryExecutor) Status(ctx context.Context) (*StatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionStatus); err != nil {
		return nil, err
	}
	return &StatusResult{Connected: true}, nil
}

func (m *MemoryExecutor) Playlists(ctx context.Context) ([]PlaylistSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionPlaylists); err != nil {
		return nil, err
	}
	out := make([]PlaylistSummary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, PlaylistSummary{ID: id, Name: m.playlists[id].name})
	}
	return out, nil
}

func (m *MemoryExecutor) CreatePlaylist(ctx context.Context, name, _ string) (*PlaylistSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionCreatePlaylist); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput(ActionCreatePlaylist, "name is required.")
	}

	m.nextID++
	id := fmt.Sprintf("PLMEM%04d", m.nextID)
	m.playlists[id] = &memoryPlaylist{id: id, name: name}
	m.order = append(m.order, id)
	return &PlaylistSummary{ID: id, Name: name}, nil
}

func (m *MemoryExecutor) DeletePlaylist(ctx context.Context, playlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionDeletePlaylist); err != nil {
		return err
	}
	if _, err := m.playlist(ActionDeletePlaylist, playlistID); err != nil {
		return err
	}
	delete(m.playlists, playlistID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == playlistID })
	return nil
}

func (m *MemoryExecutor) PlaylistSongs(ctx context.Context, playlistID string) (*PlaylistSongs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionPlaylistSongs); err != nil {
		return nil, err
	}
	p, err := m.playlist(ActionPlaylistSongs, playlistID)
	if err != nil {
		return nil, err
	}

	out := &PlaylistSongs{
		Songs:       make([]string, len(p.tracks)),
		SongDetails: slices.Clone(p.tracks),
	}
	for i, t := range p.tracks {
		out.Songs[i] = models.Display(t)
	}
	return out, nil
}

// locate finds ref in tracks, preferring the set video id.
func locate(tracks []models.SongDetail, ref models.ProviderRef) int {
	if ref.SetVideoID != "" {
		for i, t := range tracks {
			if t.SetVideoID == ref.SetVideoID {
				return i
			}
		}
	}
	if ref.VideoID != "" {
		for i, t := range tracks {
			if t.VideoID == ref.VideoID {
				return i
			}
		}
	}
	return -1
}

func (m *MemoryExecutor) RemovePlaylistItems(ctx context.Context, playlistID string, refs []models.ProviderRef) (*RemoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionRemoveItems); err != nil {
		return nil, err
	}
	p, err := m.playlist(ActionRemoveItems, playlistID)
	if err != nil {
		return nil, err
	}

	var valid []models.ProviderRef
	for _, r := range refs {
		if r.Addressable() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil, invalidInput(ActionRemoveItems, "songs must include at least one item with setVideoId or videoId.")
	}

	for _, r := range valid {
		if i := locate(p.tracks, r); i >= 0 {
			p.tracks = slices.Delete(slices.Clone(p.tracks), i, i+1)
		}
	}
	return &RemoveResult{PlaylistID: playlistID, DeletedCount: len(valid)}, nil
}

// relocate moves tracks[from] so it ends at index to.
func relocate(tracks []models.SongDetail, from, to int) []models.SongDetail {
	out := slices.Clone(tracks)
	t := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, t)
}

func (m *MemoryExecutor) lookupVideo(videoID string) models.SongDetail {
	for _, c := range m.catalog {
		if c.VideoID == videoID {
			return models.SongDetail{Title: c.Title, Artist: c.ArtistText(), Album: c.Album, ProviderRef: models.ProviderRef{VideoID: c.VideoID}}
		}
	}
	return models.SongDetail{Title: videoID, ProviderRef: models.ProviderRef{VideoID: videoID}}
}

// insertAt appends videoID (or reuses its existing entry) and moves it toward
// expected, bounded by the playlist length. Callers hold m.mu.
func (m *MemoryExecutor) insertAt(p *memoryPlaylist, videoID string, expected int) (int, bool) {
	from := locate(p.tracks, models.ProviderRef{VideoID: videoID})
	if from < 0 {
		t := m.lookupVideo(videoID)
		t.SetVideoID = m.newSetVideoID()
		p.tracks = append(slices.Clone(p.tracks), t)
		from = len(p.tracks) - 1
	}

	to := min(expected, len(p.tracks)-1)
	if from == to {
		return to, false
	}
	p.tracks = relocate(p.tracks, from, to)
	return to, true
}

func (m *MemoryExecutor) InsertVideoAtPosition(ctx context.Context, playlistID, videoID string, expectedIndex int) (*InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionInsertVideo); err != nil {
		return nil, err
	}
	p, err := m.playlist(ActionInsertVideo, playlistID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, invalidInput(ActionInsertVideo, "videoId is required.")
	}
	if expectedIndex < 0 {
		return nil, invalidInput(ActionInsertVideo, "expectedIndex must be a non-negative integer.")
	}

	idx, moved := m.insertAt(p, videoID, expectedIndex)
	return &InsertResult{PlaylistID: playlistID, VideoID: videoID, InsertedIndex: idx, Moved: moved}, nil
}

func (m *MemoryExecutor) MovePlaylistSong(ctx context.Context, playlistID string, ref models.ProviderRef, direction Direction, positions int) (*MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionMoveSong); err != nil {
		return nil, err
	}
	p, err := m.playlist(ActionMoveSong, playlistID)
	if err != nil {
		return nil, err
	}
	if !ref.Addressable() {
		return nil, invalidInput(ActionMoveSong, "song must include setVideoId or videoId.")
	}
	if direction != Up && direction != Down {
		return nil, invalidInput(ActionMoveSong, "direction must be either 'up' or 'down'.")
	}
	if positions <= 0 {
		return nil, invalidInput(ActionMoveSong, "positions must be a positive integer.")
	}

	if len(p.tracks) < 2 {
		return &MoveResult{PlaylistID: playlistID}, nil
	}

	from := locate(p.tracks, ref)
	if from < 0 {
		return nil, &ExecutorError{Action: ActionMoveSong, Status: 404, Code: "playlist_song_not_found", Message: "Could not find selected song in playlist."}
	}

	steps := min(positions, len(p.tracks)-1-from)
	to := from + steps
	if direction == Up {
		steps = min(positions, from)
		to = from - steps
	}
	if steps > 0 {
		p.tracks = relocate(p.tracks, from, to)
	}
	return &MoveResult{PlaylistID: playlistID, Moved: to != from, FromIndex: from, ToIndex: to}, nil
}

// search returns catalog entries whose title overlaps the query title.
func (m *MemoryExecutor) search(title string) []Candidate {
	q := shared.FoldText(title)
	var out []Candidate
	for _, c := range m.catalog {
		have := shared.FoldText(c.Title)
		if strings.Contains(have, q) || strings.Contains(q, have) {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryExecutor) Migrate(ctx context.Context, req MigrateRequest) (*MigrateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, ActionMigrate); err != nil {
		return nil, err
	}
	p, err := m.playlist(ActionMigrate, req.PlaylistID)
	if err != nil {
		return nil, err
	}
	if len(req.Songs) == 0 {
		return nil, invalidInput(ActionMigrate, "songs must be a non-empty array.")
	}

	resp := &MigrateResponse{PlaylistID: req.PlaylistID}
	for _, item := range req.Songs {
		if strings.TrimSpace(item.Title) == "" {
			resp.Failed = append(resp.Failed, models.FailedFromItem(item, "Song title is required."))
			continue
		}

		best, ok := PickBestMatch(m.search(item.Title), item.Title, item.Artist, item.Album)
		if !ok {
			resp.Failed = append(resp.Failed, models.FailedFromItem(item, "No matching song found on YouTube Music."))
			continue
		}

		expected := len(p.tracks)
		if req.PreservePosition && item.ExpectedIndex != nil {
			expected = *item.ExpectedIndex
		}
		m.insertAt(p, best.VideoID, expected)

		resp.Migrated = append(resp.Migrated, models.MigratedSong{
			SourceKey:      item.SourceKey,
			Title:          item.Title,
			Artist:         item.Artist,
			Album:          item.Album,
			ExpectedIndex:  item.ExpectedIndex,
			VideoID:        best.VideoID,
			MatchedTitle:   best.Title,
			MatchedArtists: best.ArtistText(),
		})
	}
	return resp, nil
}
