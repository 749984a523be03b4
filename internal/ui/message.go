package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/melodex/internal/history"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/player"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSongsLoaded MsgKind = iota
	MsgArtistsLoaded
	MsgPlaylistsLoaded
	MsgHistoryLoaded
	MsgPlayerState
	MsgSelectDone
	MsgActionDone
	MsgPlaybackDone
	MsgLoginDone
	MsgSearchTick
)

type songsPayload struct {
	section Section
	page    models.Page[*models.Song]
	err     error
}

type artistsPayload struct {
	artists []*models.Artist
	err     error
}

type playlistsPayload struct {
	playlists []*models.Playlist
	err       error
}

type historyPayload struct {
	entries []history.Entry
	err     error
}

type selectPayload struct {
	song   models.Song
	resume float64
	err    error
}

type loginPayload struct {
	user *models.User
	err  error
}

// songsLoadedMsg is the constructor for [MsgSongsLoaded]
func songsLoadedMsg(section Section, page models.Page[*models.Song], err error) Msg {
	return Msg{kind: MsgSongsLoaded, data: songsPayload{section, page, err}}
}

// artistsLoadedMsg is the constructor for [MsgArtistsLoaded]
func artistsLoadedMsg(artists []*models.Artist, err error) Msg {
	return Msg{kind: MsgArtistsLoaded, data: artistsPayload{artists, err}}
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(playlists []*models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlistsPayload{playlists, err}}
}

// historyLoadedMsg is the constructor for [MsgHistoryLoaded]
func historyLoadedMsg(entries []history.Entry, err error) Msg {
	return Msg{kind: MsgHistoryLoaded, data: historyPayload{entries, err}}
}

// playerStateMsg is the constructor for [MsgPlayerState]
func playerStateMsg(state player.State) Msg {
	return Msg{kind: MsgPlayerState, data: state}
}

// selectDoneMsg is the constructor for [MsgSelectDone]
func selectDoneMsg(song models.Song, resume float64, err error) Msg {
	return Msg{kind: MsgSelectDone, data: selectPayload{song, resume, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]; err is nil on success
func actionDoneMsg(err error) Msg {
	return Msg{kind: MsgActionDone, data: err}
}

// playbackDoneMsg is the constructor for [MsgPlaybackDone]; err is nil on success
func playbackDoneMsg(err error) Msg {
	return Msg{kind: MsgPlaybackDone, data: err}
}

// loginDoneMsg is the constructor for [MsgLoginDone]
func loginDoneMsg(user *models.User, err error) Msg {
	return Msg{kind: MsgLoginDone, data: loginPayload{user, err}}
}

// searchTickMsg is the constructor for [MsgSearchTick]; seq identifies the keystroke that scheduled it
func searchTickMsg(seq int) Msg {
	return Msg{kind: MsgSearchTick, data: seq}
}
