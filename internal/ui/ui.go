package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/history"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/player"
	"github.com/desertthunder/melodex/internal/shared"
)

// Section is one of the browse tabs.
type Section int

const (
	SearchSection Section = iota
	LatestSection
	ArtistsSection
	PlaylistsSection
	HistorySection
	sectionCount
)

func (s Section) String() string {
	switch s {
	case SearchSection:
		return "Search"
	case LatestSection:
		return "New releases"
	case ArtistsSection:
		return "Artists"
	case PlaylistsSection:
		return "Playlists"
	case HistorySection:
		return "History"
	default:
		return ""
	}
}

const (
	defaultDebounce     = 300 * time.Millisecond
	defaultSeekStep     = 5.0
	volumeStep          = 0.1
	positionSaveSeconds = 5.0
	historyLimit        = 100
)

// Catalog is the browse side of the catalog client.
type Catalog interface {
	Songs(ctx context.Context, q models.SongQuery) (models.Page[*models.Song], error)
	LatestSongs(ctx context.Context, page, size int) (models.Page[*models.Song], error)
	Artists(ctx context.Context, q string) ([]*models.Artist, error)
	UserPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error)
}

// Player is the playback controller driven by the UI. Implemented by [player.Controller].
type Player interface {
	Select(ctx context.Context, id string) error
	TogglePlayback() error
	Seek(t float64) error
	SetVolume(v float64)
	ToggleLike(ctx context.Context) error
	TogglePlaylist(ctx context.Context, playlistID string, shouldAdd bool) error
	LoadPlaylists(ctx context.Context) error
	ClearError()
	Subscribe() (<-chan player.State, func())
}

// Session holds the signed-in user.
type Session interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout()
	User() *models.User
}

// History records plays and resume positions.
type History interface {
	Add(song models.Song) error
	UpdatePosition(songID string, position float64) error
	Recent(limit int) ([]history.Entry, error)
}

var (
	_ Player  = (*player.Controller)(nil)
	_ History = (*history.Store)(nil)
)

// Options wires the model's dependencies. History and Logger are optional.
type Options struct {
	Catalog  Catalog
	Player   Player
	Session  Session
	History  History
	Logger   *log.Logger
	PageSize int
	Debounce time.Duration
	SeekStep float64
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	catalog  Catalog
	player   Player
	session  Session
	history  History
	logger   *log.Logger
	pageSize int
	debounce time.Duration
	seekStep float64

	width   int
	height  int
	section Section
	lists   [sectionCount]list.Model

	search    textinput.Model
	searching bool
	searchSeq int
	query     string

	latestPage  int
	latestTotal int

	artists      []*models.Artist
	artistNames  map[string]string
	openArtist   *models.Artist
	playlists    []*models.Playlist
	openPlaylist *models.Playlist

	state       player.State
	stateCh     <-chan player.State
	unsubscribe func()

	picking      bool
	pickerCursor int
	login        *loginForm

	savedSongID string
	savedPos    float64

	status string
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = defaultSeekStep
	}

	search := textinput.New()
	search.Placeholder = "Search by title"
	search.Prompt = "/ "

	m := &Model{
		ctx:         ctx,
		catalog:     opts.Catalog,
		player:      opts.Player,
		session:     opts.Session,
		history:     opts.History,
		logger:      opts.Logger,
		pageSize:    opts.PageSize,
		debounce:    opts.Debounce,
		seekStep:    opts.SeekStep,
		section:     LatestSection,
		search:      search,
		latestPage:  1,
		artistNames: make(map[string]string),
		help:        help.New(),
		keys:        newKeyMap(),
	}
	for s := range sectionCount {
		m.lists[s] = newList(s.String())
	}
	return m
}

// Init subscribes to the player and loads the first page of every section.
func (m *Model) Init() tea.Cmd {
	m.stateCh, m.unsubscribe = m.player.Subscribe()

	cmds := []tea.Cmd{m.waitForState(), m.loadLatest(1), m.loadArtists(), m.searchSongs("")}
	if m.history != nil {
		cmds = append(cmds, m.loadHistory())
	}
	if m.session.User() != nil {
		cmds = append(cmds, m.loadPlaylists(), m.loadControllerPlaylists())
	}
	return tea.Batch(cmds...)
}

// Close releases the player subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case Msg:
		return m.handleMsg(msg)
	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m.updateList(msg)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.search.Width = max(w-6, 10)

	listHeight := max(h-14, 3)
	for s := range sectionCount {
		height := listHeight
		if s == SearchSection {
			height -= 2
		}
		m.lists[s].SetSize(max(w-2, 10), max(height, 3))
	}
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSongsLoaded:
		p := msg.data.(songsPayload)
		if p.err != nil {
			m.fail("load songs", p.err)
			return m, nil
		}
		switch p.section {
		case LatestSection:
			m.latestPage, m.latestTotal = p.page.Page, p.page.Total
			m.lists[LatestSection].Title = fmt.Sprintf("New releases (page %d of %d)", p.page.Page, m.pageCount())
		case ArtistsSection:
			if m.openArtist == nil {
				return m, nil
			}
		}
		cmd := m.lists[p.section].SetItems(m.songItems(p.page.Items))
		return m, cmd

	case MsgArtistsLoaded:
		p := msg.data.(artistsPayload)
		if p.err != nil {
			m.fail("load artists", p.err)
			return m, nil
		}
		m.artists = p.artists
		for _, a := range p.artists {
			m.artistNames[a.ID] = a.Name
		}
		if m.openArtist == nil {
			m.setArtistItems()
		}
		m.refreshArtistNames()
		return m, nil

	case MsgPlaylistsLoaded:
		p := msg.data.(playlistsPayload)
		if p.err != nil {
			m.fail("load playlists", p.err)
			return m, nil
		}
		m.playlists = p.playlists
		if m.openPlaylist != nil {
			for _, pl := range p.playlists {
				if pl.ID == m.openPlaylist.ID {
					m.showPlaylist(*pl)
					return m, nil
				}
			}
			m.openPlaylist = nil
		}
		m.setPlaylistItems()
		return m, nil

	case MsgHistoryLoaded:
		p := msg.data.(historyPayload)
		if p.err != nil {
			m.fail("load history", p.err)
			return m, nil
		}
		items := make([]list.Item, len(p.entries))
		for i, e := range p.entries {
			items[i] = historyItem{entry: e, artist: m.artistNames[e.Song.ArtistID]}
		}
		return m, m.lists[HistorySection].SetItems(items)

	case MsgPlayerState:
		st := msg.data.(player.State)
		m.state = st
		if m.pickerCursor >= len(st.Playlists) {
			m.pickerCursor = max(len(st.Playlists)-1, 0)
		}
		return m, tea.Batch(m.waitForState(), m.savePosition(st))

	case MsgSelectDone:
		p := msg.data.(selectPayload)
		if p.err != nil {
			if !errors.Is(p.err, player.ErrSuperseded) && !errors.Is(p.err, context.Canceled) {
				m.status = fmt.Sprintf("Could not load %s: %v", p.song.Title, p.err)
			}
			return m, nil
		}
		m.status = ""
		m.savedSongID, m.savedPos = p.song.ID, p.resume
		if p.resume > 0 {
			return m, tea.Batch(m.seekTo(p.resume), m.recordPlay(p.song))
		}
		return m, m.recordPlay(p.song)

	case MsgActionDone:
		err, _ := msg.data.(error)
		if err != nil {
			m.status = describe(err)
			return m, nil
		}
		m.status = ""
		return m, m.loadPlaylists()

	case MsgPlaybackDone:
		err, _ := msg.data.(error)
		m.report(err)
		return m, nil

	case MsgLoginDone:
		p := msg.data.(loginPayload)
		if m.login == nil {
			return m, nil
		}
		m.login.busy = false
		if p.err != nil {
			m.login.err = p.err
			return m, nil
		}
		m.login = nil
		m.status = "Signed in as " + p.user.DisplayName()
		return m, tea.Batch(m.loadPlaylists(), m.loadControllerPlaylists())

	case MsgSearchTick:
		if msg.data.(int) != m.searchSeq {
			return m, nil
		}
		return m, m.searchSongs(m.search.Value())
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.login != nil:
		return m.handleLoginKeys(msg)
	case m.picking:
		return m.handlePickerKeys(msg)
	case m.searching:
		return m.handleSearchKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.section = (m.section + 1) % sectionCount
		return m, m.enterSection()
	case key.Matches(msg, m.keys.prev):
		m.section = (m.section + sectionCount - 1) % sectionCount
		return m, m.enterSection()
	case key.Matches(msg, m.keys.search):
		m.section = SearchSection
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.play):
		return m, func() tea.Msg { return playbackDoneMsg(m.player.TogglePlayback()) }
	case key.Matches(msg, m.keys.rewind):
		return m, m.seekBy(-m.seekStep)
	case key.Matches(msg, m.keys.forward):
		return m, m.seekBy(m.seekStep)
	case key.Matches(msg, m.keys.volUp):
		m.player.SetVolume(m.state.Volume + volumeStep)
		return m, nil
	case key.Matches(msg, m.keys.volDown):
		m.player.SetVolume(m.state.Volume - volumeStep)
		return m, nil
	case key.Matches(msg, m.keys.like):
		return m, func() tea.Msg { return actionDoneMsg(m.player.ToggleLike(m.ctx)) }
	case key.Matches(msg, m.keys.add):
		return m, m.openPicker()
	case key.Matches(msg, m.keys.nextPage):
		if m.section == LatestSection && m.latestPage < m.pageCount() {
			return m, m.loadLatest(m.latestPage + 1)
		}
		return m, nil
	case key.Matches(msg, m.keys.prevPage):
		if m.section == LatestSection && m.latestPage > 1 {
			return m, m.loadLatest(m.latestPage - 1)
		}
		return m, nil
	case key.Matches(msg, m.keys.account):
		return m, m.toggleAccount()
	case key.Matches(msg, m.keys.refresh):
		return m, m.refreshSection()
	case key.Matches(msg, m.keys.dismiss):
		m.player.ClearError()
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.goBack()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		return m, m.activate()
	}

	return m.updateList(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "down", "tab":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		m.searchSeq++
		return m, m.searchSongs(m.search.Value())
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	m.searchSeq++
	seq := m.searchSeq
	return m, tea.Batch(cmd, tea.Tick(m.debounce, func(time.Time) tea.Msg { return searchTickMsg(seq) }))
}

func (m *Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.add), key.Matches(msg, m.keys.quit):
		m.picking = false
	case key.Matches(msg, m.keys.up):
		m.pickerCursor = max(m.pickerCursor-1, 0)
	case key.Matches(msg, m.keys.down):
		m.pickerCursor = min(m.pickerCursor+1, max(len(m.state.Playlists)-1, 0))
	case key.Matches(msg, m.keys.enter):
		if m.pickerCursor >= len(m.state.Playlists) {
			return m, nil
		}
		pl := m.state.Playlists[m.pickerCursor]
		return m, func() tea.Msg {
			return actionDoneMsg(m.player.TogglePlaylist(m.ctx, pl.ID, !pl.ContainsCurrent))
		}
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.login = nil
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.login.toggleFocus()
		return m, nil
	case "enter":
		if m.login.busy {
			return m, nil
		}
		if m.login.focus == 0 {
			m.login.toggleFocus()
			return m, nil
		}
		email, password := m.login.values()
		m.login.busy = true
		m.login.err = nil
		return m, func() tea.Msg {
			user, err := m.session.Login(m.ctx, email, password)
			return loginDoneMsg(user, err)
		}
	}

	f, cmd := m.login.update(msg)
	*m.login = f
	return m, cmd
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.lists[m.section], cmd = m.lists[m.section].Update(msg)
	return m, cmd
}

// activate handles enter on the selected row of the current section.
func (m *Model) activate() tea.Cmd {
	switch it := m.lists[m.section].SelectedItem().(type) {
	case songItem:
		return m.play(it.song, 0)
	case historyItem:
		return m.play(it.entry.Song, it.entry.ResumeAt)
	case artistItem:
		a := it.artist
		m.openArtist = &a
		m.lists[ArtistsSection].Title = "Songs by " + a.Name
		m.lists[ArtistsSection].SetItems(nil)
		return m.loadArtistSongs(a)
	case playlistItem:
		p := it.playlist
		m.showPlaylist(p)
	}
	return nil
}

func (m *Model) goBack() {
	switch {
	case m.section == ArtistsSection && m.openArtist != nil:
		m.openArtist = nil
		m.lists[ArtistsSection].Title = ArtistsSection.String()
		m.setArtistItems()
	case m.section == PlaylistsSection && m.openPlaylist != nil:
		m.openPlaylist = nil
		m.lists[PlaylistsSection].Title = PlaylistsSection.String()
		m.setPlaylistItems()
	}
}

func (m *Model) enterSection() tea.Cmd {
	switch m.section {
	case PlaylistsSection:
		if m.playlists == nil {
			return m.loadPlaylists()
		}
	case HistorySection:
		return m.loadHistory()
	}
	return nil
}

func (m *Model) refreshSection() tea.Cmd {
	switch m.section {
	case SearchSection:
		return m.searchSongs(m.search.Value())
	case LatestSection:
		return m.loadLatest(m.latestPage)
	case ArtistsSection:
		if m.openArtist != nil {
			return m.loadArtistSongs(*m.openArtist)
		}
		return m.loadArtists()
	case PlaylistsSection:
		return m.loadPlaylists()
	case HistorySection:
		return m.loadHistory()
	}
	return nil
}

func (m *Model) openPicker() tea.Cmd {
	if m.session.User() == nil {
		m.status = describe(shared.ErrNotAuthenticated)
		return nil
	}
	if !m.state.HasTrack() {
		m.status = describe(player.ErrNoTrack)
		return nil
	}
	m.picking = true
	m.pickerCursor = 0
	if len(m.state.Playlists) == 0 {
		return m.loadControllerPlaylists()
	}
	return nil
}

func (m *Model) toggleAccount() tea.Cmd {
	if m.session.User() == nil {
		f := newLoginForm()
		m.login = &f
		return textinput.Blink
	}
	m.session.Logout()
	m.playlists = nil
	m.openPlaylist = nil
	m.picking = false
	m.lists[PlaylistsSection].Title = PlaylistsSection.String()
	m.lists[PlaylistsSection].SetItems(nil)
	m.status = "Signed out"
	return nil
}

func (m *Model) seekBy(delta float64) tea.Cmd {
	if !m.state.HasTrack() {
		return nil
	}
	return m.seekTo(max(m.state.Progress+delta, 0))
}

// seekTo runs off the event loop; the audio engine may be mid-request.
func (m *Model) seekTo(t float64) tea.Cmd {
	return func() tea.Msg { return playbackDoneMsg(m.player.Seek(t)) }
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = describe(err)
	}
}

func (m *Model) fail(what string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.logger.Error("request failed", "op", what, "error", err)
	m.status = fmt.Sprintf("Could not %s: %v", what, err)
}

// describe turns controller errors into short hints.
func describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "Sign in first (u)"
	case errors.Is(err, player.ErrNoTrack):
		return "Select a track first"
	case errors.Is(err, player.ErrPending):
		return "Still saving the previous change"
	case errors.Is(err, player.ErrNoDefaultPlaylist):
		return "No liked-songs playlist for this account"
	case errors.Is(err, player.ErrSuperseded), errors.Is(err, context.Canceled):
		return ""
	default:
		return err.Error()
	}
}

func (m *Model) pageCount() int {
	if m.latestTotal <= 0 {
		return 1
	}
	return (m.latestTotal + m.pageSize - 1) / m.pageSize
}

func (m *Model) songItems(songs []*models.Song) []list.Item {
	items := make([]list.Item, 0, len(songs))
	for _, s := range songs {
		items = append(items, songItem{song: *s, artist: m.artistNames[s.ArtistID]})
	}
	return items
}

func (m *Model) setArtistItems() {
	items := make([]list.Item, len(m.artists))
	for i, a := range m.artists {
		items[i] = artistItem{artist: *a}
	}
	m.lists[ArtistsSection].SetItems(items)
}

func (m *Model) setPlaylistItems() {
	items := make([]list.Item, len(m.playlists))
	for i, p := range m.playlists {
		items[i] = playlistItem{playlist: *p}
	}
	m.lists[PlaylistsSection].SetItems(items)
}

func (m *Model) showPlaylist(p models.Playlist) {
	m.openPlaylist = &p
	title := p.Name
	if p.IsDefault() {
		title = "Liked songs"
	}
	m.lists[PlaylistsSection].Title = fmt.Sprintf("%s (%d tracks, %s)", title, p.TrackCount(), shared.FormatDuration(int(p.TotalDuration())))

	songs := make([]*models.Song, len(p.Songs))
	for i := range p.Songs {
		songs[i] = &p.Songs[i]
	}
	m.lists[PlaylistsSection].SetItems(m.songItems(songs))
}

// refreshArtistNames fills in artist names on rows created before the artist list arrived.
func (m *Model) refreshArtistNames() {
	for s := range sectionCount {
		items := m.lists[s].Items()
		changed := false
		for i, it := range items {
			switch v := it.(type) {
			case songItem:
				if name := m.artistNames[v.song.ArtistID]; name != v.artist {
					v.artist = name
					items[i] = v
					changed = true
				}
			case historyItem:
				if name := m.artistNames[v.entry.Song.ArtistID]; name != v.artist {
					v.artist = name
					items[i] = v
					changed = true
				}
			}
		}
		if changed {
			m.lists[s].SetItems(items)
		}
	}
}

func (m *Model) play(song models.Song, resume float64) tea.Cmd {
	m.status = "Loading " + song.Title + "..."
	return func() tea.Msg {
		err := m.player.Select(m.ctx, song.ID)
		return selectDoneMsg(song, resume, err)
	}
}

func (m *Model) waitForState() tea.Cmd {
	ch := m.stateCh
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		st, ok := <-ch
		if !ok {
			return nil
		}
		return playerStateMsg(st)
	}
}

func (m *Model) loadLatest(page int) tea.Cmd {
	return func() tea.Msg {
		p, err := m.catalog.LatestSongs(m.ctx, page, m.pageSize)
		return songsLoadedMsg(LatestSection, p, err)
	}
}

func (m *Model) searchSongs(q string) tea.Cmd {
	m.query = strings.TrimSpace(q)
	query := models.SongQuery{Q: m.query, Size: m.pageSize}
	return func() tea.Msg {
		p, err := m.catalog.Songs(m.ctx, query)
		return songsLoadedMsg(SearchSection, p, err)
	}
}

func (m *Model) loadArtists() tea.Cmd {
	return func() tea.Msg {
		artists, err := m.catalog.Artists(m.ctx, "")
		return artistsLoadedMsg(artists, err)
	}
}

func (m *Model) loadArtistSongs(a models.Artist) tea.Cmd {
	return func() tea.Msg {
		p, err := m.catalog.Songs(m.ctx, models.SongQuery{ArtistID: a.ID, Size: models.MaxPageSize})
		return songsLoadedMsg(ArtistsSection, p, err)
	}
}

func (m *Model) loadPlaylists() tea.Cmd {
	user := m.session.User()
	if user == nil {
		return nil
	}
	return func() tea.Msg {
		playlists, err := m.catalog.UserPlaylists(m.ctx, user.ID)
		return playlistsLoadedMsg(playlists, err)
	}
}

// loadControllerPlaylists refreshes the playlist membership the picker and like flag read from.
func (m *Model) loadControllerPlaylists() tea.Cmd {
	return func() tea.Msg {
		if err := m.player.LoadPlaylists(m.ctx); err != nil {
			return actionDoneMsg(err)
		}
		return nil
	}
}

func (m *Model) loadHistory() tea.Cmd {
	if m.history == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := m.history.Recent(historyLimit)
		return historyLoadedMsg(entries, err)
	}
}

func (m *Model) recordPlay(song models.Song) tea.Cmd {
	if m.history == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.history.Add(song); err != nil {
			return historyLoadedMsg(nil, err)
		}
		entries, err := m.history.Recent(historyLimit)
		return historyLoadedMsg(entries, err)
	}
}

// savePosition persists the resume point of the recorded track every few seconds of movement.
func (m *Model) savePosition(st player.State) tea.Cmd {
	if m.history == nil || st.Track == nil || st.Track.ID != m.savedSongID {
		return nil
	}
	if math.Abs(st.Progress-m.savedPos) < positionSaveSeconds {
		return nil
	}
	m.savedPos = st.Progress
	id, pos := st.Track.ID, st.Progress
	return func() tea.Msg {
		if err := m.history.UpdatePosition(id, pos); err != nil {
			m.logger.Warn("failed to save resume position", "song", id, "error", err)
		}
		return nil
	}
}

// View renders the UI.
func (m *Model) View() string {
	var body string
	switch {
	case m.login != nil:
		body = boxStyle.Render(m.login.view())
	case m.picking:
		body = boxStyle.Render(renderPicker(m.state, m.pickerCursor))
	default:
		body = m.sectionView()
	}

	var trackArtist string
	if m.state.Track != nil {
		trackArtist = m.artistNames[m.state.Track.ArtistID]
	}
	bar := boxStyle.Width(max(m.width-4, 20)).Render(renderPlayerBar(m.state, trackArtist, m.width))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		body,
		bar,
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, sectionCount)
	for s := range sectionCount {
		style := inactiveTabStyle
		if s == m.section {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(s.String()))
	}

	account := styles.muted.Render("guest")
	if u := m.session.User(); u != nil {
		account = styles.ok.Render(u.DisplayName())
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, append(tabs, "  ", account)...)
}

func (m *Model) sectionView() string {
	l := m.lists[m.section]
	switch m.section {
	case SearchSection:
		return m.search.View() + "\n\n" + l.View()
	case PlaylistsSection:
		if m.session.User() == nil {
			return styles.muted.Render("Sign in (u) to see your playlists")
		}
	case HistorySection:
		if m.history == nil {
			return styles.muted.Render("History is disabled")
		}
	}
	return l.View()
}

func (m *Model) renderStatus() string {
	if m.state.Err != "" {
		return styles.err.Render("Error: " + m.state.Err + " (x to dismiss)")
	}
	return styles.warn.Render(m.status)
}
