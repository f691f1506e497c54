package music

import (
	"fmt"
	"strings"

	"bedtime-server/internal/models"
)

// Track is one background music option offered to the user.
type Track struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Library is a static catalog of background music. Lookup is a pure local
// table read, no network involved.
type Library struct {
	tracks []Track
	byID   map[string]Track
}

// NewLibrary builds the built-in catalog with URLs rooted at baseURL.
func NewLibrary(baseURL string) *Library {
	base := strings.TrimRight(baseURL, "/")
	tracks := []Track{
		{ID: "gentle-lullaby", Title: "Gentle Lullaby", URL: base + "/gentle-lullaby.mp3"},
		{ID: "ocean-waves", Title: "Ocean Waves", URL: base + "/ocean-waves.mp3"},
		{ID: "soft-piano", Title: "Soft Piano", URL: base + "/soft-piano.mp3"},
		{ID: "forest-night", Title: "Forest Night", URL: base + "/forest-night.mp3"},
		{ID: "music-box", Title: "Music Box", URL: base + "/music-box.mp3"},
	}
	byID := make(map[string]Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}
	return &Library{tracks: tracks, byID: byID}
}

// List returns the catalog in display order.
func (l *Library) List() []Track {
	out := make([]Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// ResolveURL maps a music id from story settings to a playable URL.
// The "no-music" id resolves to an empty URL, an unknown id is an error.
func (l *Library) ResolveURL(id string) (string, error) {
	if id == "" || id == models.MusicNone {
		return "", nil
	}
	track, ok := l.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: unknown music track %q", models.ErrNotFound, id)
	}
	return track.URL, nil
}
