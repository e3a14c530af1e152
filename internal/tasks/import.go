package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// SourceDocument is one playlist as written by a source extractor.
type SourceDocument struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Songs       []string            `json:"songs"`
	SongDetails []models.SongDetail `json:"songDetails,omitempty"`
}

// ParseSourceDocuments decodes a single document or an array of documents.
func ParseSourceDocuments(data []byte) ([]SourceDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: source document is empty", shared.ErrInvalidInput)
	}

	var docs []SourceDocument
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	} else {
		var doc SourceDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Playlist converts d into a source playlist with aligned song arrays.
//
// Details missing or without a title are parsed from the raw song. Details
// past the end of songs get their songs rendered from the details.
func (d SourceDocument) Playlist() (models.Playlist, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = shared.GenerateID()
	}

	songs := append([]string(nil), d.Songs...)
	for i := len(songs); i < len(d.SongDetails); i++ {
		songs = append(songs, models.Display(d.SongDetails[i]))
	}

	details := make([]models.SongDetail, len(songs))
	for i := range songs {
		details[i] = models.EntryAt(songs, d.SongDetails, i)
	}

	p := models.Playlist{ID: id, Name: name, Kind: models.SourcePlaylist}
	return p.WithSongs(songs, details), nil
}
