package services

import (
	"strings"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Candidate is a provider search result.
type Candidate struct {
	VideoID string   `json:"videoId"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
}

// ArtistText joins the candidate's artists the way the provider displays them.
func (c Candidate) ArtistText() string {
	return strings.Join(c.Artists, ", ")
}

func artistMatchLevel(c Candidate, artist string) int {
	artist = shared.FoldText(artist)
	have := shared.FoldText(c.ArtistText())
	if artist == "" || have == "" {
		return 0
	}
	switch {
	case have == artist:
		return 3
	case strings.Contains(have, artist):
		return 2
	}
	for _, tok := range strings.Fields(artist) {
		if strings.Contains(have, tok) {
			return 1
		}
	}
	return 0
}

func albumMatchLevel(c Candidate, album string) int {
	album = shared.FoldText(album)
	have := shared.FoldText(c.Album)
	if album == "" || have == "" {
		return 0
	}
	switch {
	case have == album:
		return 2
	case strings.Contains(have, album):
		return 1
	}
	return 0
}

// scoreCandidate rewards title and artist agreement; album counts four times its level.
func scoreCandidate(c Candidate, title, artist, album string) int {
	score := 0
	title = shared.FoldText(title)
	have := shared.FoldText(c.Title)

	switch {
	case title != "" && have == title:
		score += 8
	case title != "" && strings.Contains(have, title):
		score += 5
	}

	switch artistMatchLevel(c, artist) {
	case 3:
		score += 5
	case 2:
		score += 3
	case 1:
		score += 1
	}

	if c.VideoID != "" {
		score += 2
	}

	return score + albumMatchLevel(c, album)*4
}

// PickBestMatch chooses the highest scoring candidate with a video id.
//
// When artist is set, candidates sharing no artist token are discarded; if that
// leaves nothing there is no match. Ties keep the earlier candidate.
func PickBestMatch(candidates []Candidate, title, artist, album string) (Candidate, bool) {
	var pool []Candidate
	for _, c := range candidates {
		if strings.TrimSpace(c.VideoID) != "" {
			pool = append(pool, c)
		}
	}

	if strings.TrimSpace(artist) != "" {
		var filtered []Candidate
		for _, c := range pool {
			if artistMatchLevel(c, artist) > 0 {
				filtered = append(filtered, c)
			}
		}
		pool = filtered
	}

	if len(pool) == 0 {
		return Candidate{}, false
	}

	best, bestScore := pool[0], scoreCandidate(pool[0], title, artist, album)
	for _, c := range pool[1:] {
		if s := scoreCandidate(c, title, artist, album); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, true
}
