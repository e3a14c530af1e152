package models

import (
	"strconv"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

// songSeparator splits "Artist - Title" strings.
const songSeparator = " - "

// SongKey is the cross-provider comparison key "title|artist", case folded.
//
// The zero value means the song cannot be matched.
type SongKey string

// Valid reports whether k can participate in matching.
func (k SongKey) Valid() bool { return k != "" }

// ProviderRef identifies a song on the target provider.
//
// SetVideoID addresses one playlist entry, VideoID addresses the content.
type ProviderRef struct {
	VideoID    string `json:"videoId,omitempty"`
	SetVideoID string `json:"setVideoId,omitempty"`
}

// Addressable reports whether the executor can act on r.
func (r ProviderRef) Addressable() bool {
	return strings.TrimSpace(r.VideoID) != "" || strings.TrimSpace(r.SetVideoID) != ""
}

// SongDetail is the structured form of a playlist entry.
type SongDetail struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	ProviderRef
}

// ParseSong splits a free text song on the first " - " into artist and title.
//
// Without a separator the whole string is the title.
func ParseSong(raw string) SongDetail {
	artist, title, found := strings.Cut(raw, songSeparator)
	if !found {
		return SongDetail{Title: strings.TrimSpace(raw)}
	}
	return SongDetail{
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}
}

// Display renders d the way the executor lists songs: "Artist - Title", or the bare title.
func Display(d SongDetail) string {
	title := strings.TrimSpace(d.Title)
	artist := strings.TrimSpace(d.Artist)
	if artist == "" {
		return title
	}
	return artist + songSeparator + title
}

// ComparisonKey derives the comparison key of d. Album never participates.
func ComparisonKey(d SongDetail) SongKey {
	return SongKey(shared.NormalizeTrackKey(d.Title, d.Artist))
}

// ComparisonKeyFromRaw parses raw with [ParseSong] and derives its comparison key.
func ComparisonKeyFromRaw(raw string) SongKey {
	return ComparisonKey(ParseSong(raw))
}

// PositionalKey is the selection identity of the entry at index.
//
// It is unique within one list and must not be used to compare across providers.
func PositionalKey(d SongDetail, index int) string {
	return strings.Join([]string{
		shared.FoldText(d.Title),
		shared.FoldText(d.Artist),
		shared.FoldText(d.Album),
		strconv.Itoa(index),
	}, "|")
}

// EntryAt resolves entry i of an index aligned songs/details pair.
//
// A stored detail wins when it has a title, otherwise the raw string is parsed.
// A detail's provider reference is kept even when its title is unusable.
func EntryAt(songs []string, details []SongDetail, i int) SongDetail {
	var d SongDetail
	hasDetail := i >= 0 && i < len(details)
	if hasDetail {
		d = details[i]
		if strings.TrimSpace(d.Title) != "" {
			return d
		}
	}
	if i >= 0 && i < len(songs) {
		parsed := ParseSong(songs[i])
		if hasDetail {
			parsed.ProviderRef = d.ProviderRef
			if parsed.Album == "" {
				parsed.Album = d.Album
			}
		}
		return parsed
	}
	return d
}

// EntryKey is the comparison key of entry i, see [EntryAt].
func EntryKey(songs []string, details []SongDetail, i int) SongKey {
	return ComparisonKey(EntryAt(songs, details, i))
}

// EntryCount is the number of entries described by songs and details.
func EntryCount(songs []string, details []SongDetail) int {
	return max(len(songs), len(details))
}
