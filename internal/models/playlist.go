package models

import (
	"fmt"
	"slices"
	"time"
)

// PlaylistKind distinguishes imported source playlists from provider target playlists.
type PlaylistKind string

const (
	SourcePlaylist PlaylistKind = "source"
	TargetPlaylist PlaylistKind = "target"
)

func (k PlaylistKind) Valid() bool {
	return k == SourcePlaylist || k == TargetPlaylist
}

// Playlist is an ordered song collection.
//
// Songs[i] and SongDetails[i] describe the same entry; SongDetails may be shorter.
// A Playlist is a value: the With* helpers return copies and both arrays are
// only ever replaced as a whole.
type Playlist struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Kind             PlaylistKind `json:"kind"`
	Songs            []string     `json:"songs"`
	SongDetails      []SongDetail `json:"songDetails"`
	MigratedKeys     KeySet       `json:"migratedKeys"`
	ResolvedDiffKeys KeySet       `json:"resolvedDiffKeys"`
	SongsLoaded      bool         `json:"songsLoaded"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Validate checks the fields the store relies on.
func (p Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("invalid playlist kind %q", p.Kind)
	}
	if len(p.SongDetails) > len(p.Songs) {
		return fmt.Errorf("playlist %s has %d details for %d songs", p.ID, len(p.SongDetails), len(p.Songs))
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Playlist) Clone() Playlist {
	out := p
	out.Songs = slices.Clone(p.Songs)
	out.SongDetails = slices.Clone(p.SongDetails)
	out.MigratedKeys = p.MigratedKeys.Clone()
	out.ResolvedDiffKeys = p.ResolvedDiffKeys.Clone()
	return out
}

// WithSongs replaces both song arrays and marks the songs as loaded.
func (p Playlist) WithSongs(songs []string, details []SongDetail) Playlist {
	out := p.Clone()
	out.Songs = slices.Clone(songs)
	out.SongDetails = slices.Clone(details)
	if out.Songs == nil {
		out.Songs = []string{}
	}
	if out.SongDetails == nil {
		out.SongDetails = []SongDetail{}
	}
	out.SongsLoaded = true
	return out
}

// MarkStale flags the song arrays as out of date with the provider.
func (p Playlist) MarkStale() Playlist {
	out := p.Clone()
	out.SongsLoaded = false
	return out
}

func (p Playlist) WithMigrated(keys ...SongKey) Playlist {
	out := p.Clone()
	out.MigratedKeys = p.MigratedKeys.With(keys...)
	return out
}

func (p Playlist) WithoutMigrated(keys ...SongKey) Playlist {
	out := p.Clone()
	out.MigratedKeys = p.MigratedKeys.Without(keys...)
	return out
}

func (p Playlist) WithResolved(keys ...SongKey) Playlist {
	out := p.Clone()
	out.ResolvedDiffKeys = p.ResolvedDiffKeys.With(keys...)
	return out
}

func (p Playlist) WithoutResolved(keys ...SongKey) Playlist {
	out := p.Clone()
	out.ResolvedDiffKeys = p.ResolvedDiffKeys.Without(keys...)
	return out
}

// Len is the number of entries in p.
func (p Playlist) Len() int {
	return EntryCount(p.Songs, p.SongDetails)
}

// Entry resolves entry i, see [EntryAt].
func (p Playlist) Entry(i int) SongDetail {
	return EntryAt(p.Songs, p.SongDetails, i)
}

// Key is the comparison key of entry i.
func (p Playlist) Key(i int) SongKey {
	return EntryKey(p.Songs, p.SongDetails, i)
}

// Detail returns the stored detail for index i, if any.
func (p Playlist) Detail(i int) (SongDetail, bool) {
	if i < 0 || i >= len(p.SongDetails) {
		return SongDetail{}, false
	}
	return p.SongDetails[i], true
}

// PositionalKeys lists the selection key of every entry in order.
func (p Playlist) PositionalKeys() []string {
	keys := make([]string, p.Len())
	for i := range keys {
		keys[i] = PositionalKey(p.Entry(i), i)
	}
	return keys
}

// IndexOf finds the entry whose positional key is key.
func (p Playlist) IndexOf(key string) (int, bool) {
	for i, k := range p.PositionalKeys() {
		if k == key {
			return i, true
		}
	}
	return -1, false
}
