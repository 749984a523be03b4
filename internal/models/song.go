package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/shared"
)

// Song is a catalog track. SongID is the external identifier that names the audio file on the stream server.
type Song struct {
	ID          string    `json:"_id"`
	SongID      string    `json:"song_id"`
	Title       string    `json:"title"`
	ArtistID    string    `json:"artist_id,omitempty"`
	Album       string    `json:"album"`
	DurationSec float64   `json:"duration_sec"`
	ReleaseYear string    `json:"release_year"`
	Cover       string    `json:"cover"`
	AudioURL    string    `json:"audio_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Song) Key() string { return s.ID }

// Validate requires an external song id and a title.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.SongID) == "" {
		return fmt.Errorf("%w: song_id required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title required", shared.ErrInvalidInput)
	}
	if math.IsNaN(s.DurationSec) || math.IsInf(s.DurationSec, 0) || s.DurationSec < 0 {
		s.DurationSec = 0
	}
	return nil
}

// Seconds is the duration rounded to whole seconds.
func (s Song) Seconds() int {
	return int(math.Round(s.DurationSec))
}

// FileName is the name of the audio file for this song on the stream server.
func (s Song) FileName() string {
	return s.SongID + ".mp3"
}

// Artist is a performer referenced by songs.
type Artist struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (a *Artist) Key() string { return a.ID }

func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrInvalidInput)
	}
	return nil
}

// SongQuery filters a song listing. Empty fields do not filter.
type SongQuery struct {
	Q        string // case-insensitive title substring
	SongID   string
	ArtistID string
	Page     int
	Size     int
}
