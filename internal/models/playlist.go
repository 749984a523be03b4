package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/shared"
)

// DefaultPlaylistName names the playlist that holds a user's liked songs.
const DefaultPlaylistName = "songs"

// Playlist is a named, user-owned set of songs. Song order carries no meaning.
//
// Edits go through [Playlist.WithSong] and [Playlist.WithoutSong], which return a new value and leave the receiver untouched.
type Playlist struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Songs     []Song    `json:"songs"`
}

func (p *Playlist) Key() string { return p.ID }

func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id required", shared.ErrInvalidInput)
	}
	return nil
}

// IsDefault reports whether this is the liked-songs playlist.
func (p Playlist) IsDefault() bool {
	return p.Name == DefaultPlaylistName
}

// TrackCount is the number of songs in the playlist.
func (p Playlist) TrackCount() int {
	return len(p.Songs)
}

// TotalDuration is the sum of song durations in seconds.
func (p Playlist) TotalDuration() float64 {
	var total float64
	for _, s := range p.Songs {
		total += s.DurationSec
	}
	return total
}

// TotalHours is the aggregate duration in whole hours, rounded down.
func (p Playlist) TotalHours() int {
	return shared.WholeHours(int(p.TotalDuration()))
}

// Contains reports whether a song with the given catalog id is a member.
func (p Playlist) Contains(songID string) bool {
	return slices.ContainsFunc(p.Songs, func(s Song) bool { return s.ID == songID })
}

// WithSong returns a copy of p with song appended unless it is already a member.
func (p Playlist) WithSong(song Song) Playlist {
	if p.Contains(song.ID) {
		p.Songs = slices.Clone(p.Songs)
		return p
	}
	songs := make([]Song, 0, len(p.Songs)+1)
	songs = append(songs, p.Songs...)
	p.Songs = append(songs, song)
	return p
}

// WithoutSong returns a copy of p without the song with the given catalog id.
func (p Playlist) WithoutSong(songID string) Playlist {
	songs := make([]Song, 0, len(p.Songs))
	for _, s := range p.Songs {
		if s.ID != songID {
			songs = append(songs, s)
		}
	}
	p.Songs = songs
	return p
}
