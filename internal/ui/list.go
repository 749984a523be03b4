package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/melodex/internal/history"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

var (
	_ list.Item = songItem{}
	_ list.Item = artistItem{}
	_ list.Item = playlistItem{}
	_ list.Item = historyItem{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song   models.Song
	artist string
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.artist }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	return joinParts(i.artist, i.song.Album, shared.FormatDuration(i.song.Seconds()))
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string { return "artist" }

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.playlist.IsDefault() {
		return "♥ Liked songs"
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks • %s", i.playlist.TrackCount(), shared.FormatDuration(int(i.playlist.TotalDuration())))
}

// historyItem wraps [history.Entry] to implement [list.Item].
type historyItem struct {
	entry  history.Entry
	artist string
}

func (i historyItem) FilterValue() string { return i.entry.Song.Title }
func (i historyItem) Title() string       { return i.entry.Song.Title }
func (i historyItem) Description() string {
	desc := joinParts(i.artist, i.entry.PlayedAt.Local().Format("Jan 2 15:04"))
	if i.entry.ResumeAt > 0 {
		desc = joinParts(desc, "resume at "+shared.FormatDuration(int(i.entry.ResumeAt)))
	}
	return desc
}

func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " • ")
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.SetFilteringEnabled(false)
	return l
}
