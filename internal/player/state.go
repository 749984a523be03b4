package player

import "github.com/desertthunder/melodex/internal/models"

// Phase is the playback state of the controller.
//
//	Idle -> Loading -> Paused <-> Playing
//
// Any selection returns to Loading; a failed load returns to Idle.
type Phase int

const (
	Idle Phase = iota
	Loading
	Paused
	Playing
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// PlaylistState is a playlist as seen from the current track.
type PlaylistState struct {
	ID              string
	Name            string
	TrackCount      int
	TotalDuration   float64
	IsDefault       bool
	ContainsCurrent bool
	Pending         bool
}

// State is an immutable snapshot of the controller.
type State struct {
	Phase             Phase
	TrackID           string
	Track             *models.Song
	Liked             bool
	Playing           bool
	Progress          float64
	Duration          float64
	Volume            float64
	DefaultPlaylistID string
	Playlists         []PlaylistState
	LikePending       bool
	Err               string
}

// HasTrack reports whether metadata for the selection is loaded.
func (s State) HasTrack() bool {
	return s.Track != nil
}

// Playlist returns the playlist state with the given id.
func (s State) Playlist(id string) (PlaylistState, bool) {
	for _, p := range s.Playlists {
		if p.ID == id {
			return p, true
		}
	}
	return PlaylistState{}, false
}
