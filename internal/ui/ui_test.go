package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/melodex/internal/history"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/player"
	"github.com/desertthunder/melodex/internal/shared"
)

type fakeCatalog struct {
	queries []models.SongQuery
	pages   []int
	songs   []*models.Song
	total   int
}

func (f *fakeCatalog) Songs(_ context.Context, q models.SongQuery) (models.Page[*models.Song], error) {
	f.queries = append(f.queries, q)
	return models.Page[*models.Song]{Items: f.songs, Page: 1, Size: q.Size, Total: len(f.songs)}, nil
}

func (f *fakeCatalog) LatestSongs(_ context.Context, page, size int) (models.Page[*models.Song], error) {
	f.pages = append(f.pages, page)
	return models.Page[*models.Song]{Items: f.songs, Page: page, Size: size, Total: f.total}, nil
}

func (f *fakeCatalog) Artists(context.Context, string) ([]*models.Artist, error) {
	return []*models.Artist{{ID: "a1", Name: "Nina"}}, nil
}

func (f *fakeCatalog) UserPlaylists(context.Context, string) ([]*models.Playlist, error) {
	return nil, nil
}

type fakePlayer struct {
	selected []string
	seeks    []float64
	toggles  int
	volume   float64
	toggled  map[string]bool
	cleared  bool
	loadErr  error
	playErr  error
	// block, when set, holds TogglePlayback and Seek until closed.
	block chan struct{}
}

func (f *fakePlayer) Select(_ context.Context, id string) error {
	f.selected = append(f.selected, id)
	return nil
}
func (f *fakePlayer) TogglePlayback() error {
	if f.block != nil {
		<-f.block
	}
	f.toggles++
	return f.playErr
}
func (f *fakePlayer) Seek(t float64) error {
	if f.block != nil {
		<-f.block
	}
	f.seeks = append(f.seeks, t)
	return nil
}
func (f *fakePlayer) SetVolume(v float64)                { f.volume = v }
func (f *fakePlayer) ToggleLike(context.Context) error    { return shared.ErrNotAuthenticated }
func (f *fakePlayer) LoadPlaylists(context.Context) error { return f.loadErr }
func (f *fakePlayer) ClearError()                        { f.cleared = true }
func (f *fakePlayer) Subscribe() (<-chan player.State, func()) {
	return nil, func() {}
}
func (f *fakePlayer) TogglePlaylist(_ context.Context, id string, add bool) error {
	if f.toggled == nil {
		f.toggled = make(map[string]bool)
	}
	f.toggled[id] = add
	return nil
}

type fakeSession struct {
	user *models.User
}

func (f *fakeSession) Login(_ context.Context, email, password string) (*models.User, error) {
	if password != "secret" {
		return nil, shared.ErrInvalidCredentials
	}
	f.user = &models.User{ID: "u1", Email: email, Username: "nina"}
	return f.user, nil
}
func (f *fakeSession) Logout()             { f.user = nil }
func (f *fakeSession) User() *models.User { return f.user }

type fakeHistory struct {
	added     []string
	positions map[string]float64
}

func (f *fakeHistory) Add(song models.Song) error {
	f.added = append(f.added, song.ID)
	return nil
}

func (f *fakeHistory) UpdatePosition(id string, pos float64) error {
	if f.positions == nil {
		f.positions = make(map[string]float64)
	}
	f.positions[id] = pos
	return nil
}

func (f *fakeHistory) Recent(int) ([]history.Entry, error) {
	entries := make([]history.Entry, 0, len(f.added))
	for i := len(f.added) - 1; i >= 0; i-- {
		entries = append(entries, history.Entry{Song: models.Song{ID: f.added[i], Title: f.added[i]}})
	}
	return entries, nil
}

type fixture struct {
	model   *Model
	catalog *fakeCatalog
	player  *fakePlayer
	session *fakeSession
	history *fakeHistory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		catalog: &fakeCatalog{songs: []*models.Song{
			{ID: "s1", Title: "First", ArtistID: "a1", DurationSec: 200},
			{ID: "s2", Title: "Second", ArtistID: "a1", DurationSec: 180},
		}, total: 60},
		player:  &fakePlayer{},
		session: &fakeSession{},
		history: &fakeHistory{},
	}
	f.model = NewModel(context.Background(), Options{
		Catalog:  f.catalog,
		Player:   f.player,
		Session:  f.session,
		History:  f.history,
		Debounce: time.Millisecond,
	})
	f.model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return f
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runCmd executes cmd and any batch it expands to, returning the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestModelSections(t *testing.T) {
	t.Run("starts on latest", func(t *testing.T) {
		f := newFixture(t)
		if f.model.section != LatestSection {
			t.Errorf("expected LatestSection, got %v", f.model.section)
		}
	})

	t.Run("tab cycles sections", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if f.model.section != ArtistsSection {
			t.Errorf("expected ArtistsSection, got %v", f.model.section)
		}
		f.model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
		f.model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
		if f.model.section != SearchSection {
			t.Errorf("expected SearchSection, got %v", f.model.section)
		}
		f.model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
		if f.model.section != HistorySection {
			t.Errorf("expected wrap to HistorySection, got %v", f.model.section)
		}
	})

	t.Run("latest page loads and paginates", func(t *testing.T) {
		f := newFixture(t)
		p, _ := f.catalog.LatestSongs(context.Background(), 1, models.DefaultPageSize)
		f.model.Update(songsLoadedMsg(LatestSection, p, nil))

		if got := len(f.model.lists[LatestSection].Items()); got != 2 {
			t.Fatalf("expected 2 items, got %d", got)
		}
		if !strings.Contains(f.model.lists[LatestSection].Title, "page 1 of 3") {
			t.Errorf("unexpected title %q", f.model.lists[LatestSection].Title)
		}

		_, cmd := f.model.Update(keyRunes("n"))
		if cmd == nil {
			t.Fatal("expected a load command for the next page")
		}
		cmd()
		if last := f.catalog.pages[len(f.catalog.pages)-1]; last != 2 {
			t.Errorf("expected page 2 request, got %d", last)
		}

		_, cmd = f.model.Update(keyRunes("p"))
		if cmd != nil {
			t.Error("expected no previous page before page 1")
		}
	})

	t.Run("artist names fill in after artists load", func(t *testing.T) {
		f := newFixture(t)
		p, _ := f.catalog.LatestSongs(context.Background(), 1, 25)
		f.model.Update(songsLoadedMsg(LatestSection, p, nil))

		artists, _ := f.catalog.Artists(context.Background(), "")
		f.model.Update(artistsLoadedMsg(artists, nil))

		item := f.model.lists[LatestSection].Items()[0].(songItem)
		if item.artist != "Nina" {
			t.Errorf("expected artist Nina, got %q", item.artist)
		}
		if got := len(f.model.lists[ArtistsSection].Items()); got != 1 {
			t.Errorf("expected 1 artist row, got %d", got)
		}
	})

	t.Run("load error surfaces in status", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(songsLoadedMsg(LatestSection, models.Page[*models.Song]{}, errors.New("boom")))
		if !strings.Contains(f.model.status, "boom") {
			t.Errorf("expected status to mention error, got %q", f.model.status)
		}
	})
}

func TestModelSearch(t *testing.T) {
	t.Run("stale ticks are ignored", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(keyRunes("/"))
		if !f.model.searching || f.model.section != SearchSection {
			t.Fatal("expected search mode")
		}

		f.model.Update(keyRunes("f"))
		f.model.Update(keyRunes("i"))
		if f.model.searchSeq != 2 {
			t.Fatalf("expected seq 2, got %d", f.model.searchSeq)
		}

		if _, cmd := f.model.Update(searchTickMsg(1)); cmd != nil {
			t.Error("expected stale tick to be dropped")
		}

		_, cmd := f.model.Update(searchTickMsg(2))
		if cmd == nil {
			t.Fatal("expected current tick to search")
		}
		cmd()
		if q := f.catalog.queries[len(f.catalog.queries)-1]; q.Q != "fi" {
			t.Errorf("expected query fi, got %q", q.Q)
		}
	})

	t.Run("enter searches immediately", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(keyRunes("/"))
		f.model.Update(keyRunes("x"))
		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if f.model.searching {
			t.Error("expected search input to blur")
		}
		cmd()
		if q := f.catalog.queries[len(f.catalog.queries)-1]; q.Q != "x" {
			t.Errorf("expected query x, got %q", q.Q)
		}
	})
}

func TestModelPlayback(t *testing.T) {
	t.Run("enter selects the highlighted song", func(t *testing.T) {
		f := newFixture(t)
		p, _ := f.catalog.LatestSongs(context.Background(), 1, 25)
		f.model.Update(songsLoadedMsg(LatestSection, p, nil))

		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected select command")
		}
		msg := cmd()
		if len(f.player.selected) != 1 || f.player.selected[0] != "s1" {
			t.Fatalf("unexpected selections %v", f.player.selected)
		}

		_, cmd = f.model.Update(msg)
		if cmd == nil {
			t.Fatal("expected history command")
		}
		cmd()
		if len(f.history.added) != 1 || f.history.added[0] != "s1" {
			t.Errorf("expected s1 recorded, got %v", f.history.added)
		}
		if len(f.player.seeks) != 0 {
			t.Errorf("expected no resume seek, got %v", f.player.seeks)
		}
	})

	t.Run("history entry resumes", func(t *testing.T) {
		f := newFixture(t)
		song := models.Song{ID: "s2", Title: "Second"}
		_, cmd := f.model.Update(selectDoneMsg(song, 42, nil))
		if len(f.player.seeks) != 0 {
			t.Fatal("resume seek must not run inside Update")
		}
		runCmd(cmd)
		if len(f.player.seeks) != 1 || f.player.seeks[0] != 42 {
			t.Errorf("expected seek to 42, got %v", f.player.seeks)
		}
	})

	t.Run("superseded selection stays quiet", func(t *testing.T) {
		f := newFixture(t)
		f.model.status = ""
		f.model.Update(selectDoneMsg(models.Song{ID: "s1"}, 0, player.ErrSuperseded))
		if f.model.status != "" {
			t.Errorf("expected empty status, got %q", f.model.status)
		}
		if len(f.history.added) != 0 {
			t.Error("superseded selection must not be recorded")
		}
	})

	t.Run("position saves are throttled", func(t *testing.T) {
		f := newFixture(t)
		song := models.Song{ID: "s1"}
		f.model.Update(selectDoneMsg(song, 0, nil))

		st := player.State{Phase: player.Playing, TrackID: "s1", Track: &song, Progress: 2}
		if cmd := f.model.savePosition(st); cmd != nil {
			t.Error("expected no save under threshold")
		}

		st.Progress = 6
		cmd := f.model.savePosition(st)
		if cmd == nil {
			t.Fatal("expected a save")
		}
		cmd()
		if f.history.positions["s1"] != 6 {
			t.Errorf("expected position 6, got %v", f.history.positions["s1"])
		}
	})

	t.Run("volume and seek keys", func(t *testing.T) {
		f := newFixture(t)
		song := models.Song{ID: "s1"}
		f.model.Update(playerStateMsg(player.State{Phase: player.Playing, TrackID: "s1", Track: &song, Progress: 3, Volume: 0.5}))

		f.model.Update(keyRunes("+"))
		if f.player.volume < 0.59 || f.player.volume > 0.61 {
			t.Errorf("expected volume 0.6, got %v", f.player.volume)
		}

		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyLeft})
		runCmd(cmd)
		if len(f.player.seeks) != 1 || f.player.seeks[0] != 0 {
			t.Errorf("expected seek clamped to 0, got %v", f.player.seeks)
		}
	})

	t.Run("play and seek keys return without waiting on the player", func(t *testing.T) {
		f := newFixture(t)
		song := models.Song{ID: "s1"}
		f.model.Update(playerStateMsg(player.State{Phase: player.Paused, TrackID: "s1", Track: &song, Progress: 10}))
		f.player.block = make(chan struct{})

		var cmds []tea.Cmd
		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, k := range []tea.KeyMsg{{Type: tea.KeySpace, Runes: []rune{' '}}, {Type: tea.KeyRight}} {
				_, cmd := f.model.Update(k)
				cmds = append(cmds, cmd)
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Update blocked on the player")
		}
		if f.player.toggles != 0 || len(f.player.seeks) != 0 {
			t.Fatal("player must only be called from commands")
		}

		close(f.player.block)
		for _, cmd := range cmds {
			if cmd == nil {
				t.Fatal("expected a command per key")
			}
			for _, msg := range runCmd(cmd) {
				f.model.Update(msg)
			}
		}
		if f.player.toggles != 1 {
			t.Errorf("expected one toggle, got %d", f.player.toggles)
		}
		if len(f.player.seeks) != 1 || f.player.seeks[0] != 15 {
			t.Errorf("expected seek to 15, got %v", f.player.seeks)
		}
	})

	t.Run("playback failure is reported", func(t *testing.T) {
		f := newFixture(t)
		f.player.playErr = shared.ErrNotAuthenticated
		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		for _, msg := range runCmd(cmd) {
			f.model.Update(msg)
		}
		if f.model.status != "Sign in first (u)" {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("like without a session explains", func(t *testing.T) {
		f := newFixture(t)
		_, cmd := f.model.Update(keyRunes("f"))
		f.model.Update(cmd())
		if f.model.status != "Sign in first (u)" {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("dismiss clears controller error", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(keyRunes("x"))
		if !f.player.cleared {
			t.Error("expected ClearError")
		}
	})
}

func TestModelPicker(t *testing.T) {
	t.Run("requires a user", func(t *testing.T) {
		f := newFixture(t)
		f.model.Update(keyRunes("a"))
		if f.model.picking {
			t.Error("picker should stay closed")
		}
		if f.model.status != "Sign in first (u)" {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("toggles membership", func(t *testing.T) {
		f := newFixture(t)
		f.session.user = &models.User{ID: "u1"}
		song := models.Song{ID: "s1"}
		f.model.Update(playerStateMsg(player.State{
			TrackID: "s1",
			Track:   &song,
			Playlists: []player.PlaylistState{
				{ID: "p1", Name: "Default", IsDefault: true, ContainsCurrent: true},
				{ID: "p2", Name: "Road Trip"},
			},
		}))

		f.model.Update(keyRunes("a"))
		if !f.model.picking {
			t.Fatal("expected picker")
		}
		f.model.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		f.model.Update(cmd())
		if add, ok := f.player.toggled["p2"]; !ok || !add {
			t.Errorf("expected add to p2, got %v", f.player.toggled)
		}

		f.model.Update(tea.KeyMsg{Type: tea.KeyUp})
		_, cmd = f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		cmd()
		if add := f.player.toggled["p1"]; add {
			t.Error("expected removal from p1")
		}

		view := f.model.View()
		if !strings.Contains(view, "Add to playlist") || !strings.Contains(view, "Road Trip") {
			t.Errorf("picker not rendered:\n%s", view)
		}

		f.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if f.model.picking {
			t.Error("expected picker closed")
		}
	})
}

func TestModelLogin(t *testing.T) {
	f := newFixture(t)
	f.model.Update(keyRunes("u"))
	if f.model.login == nil {
		t.Fatal("expected login form")
	}

	for _, r := range "nina@example.com" {
		f.model.Update(keyRunes(string(r)))
	}
	f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for _, r := range "wrong" {
		f.model.Update(keyRunes(string(r)))
	}

	_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected login command")
	}
	f.model.Update(cmd())
	if f.model.login == nil || !errors.Is(f.model.login.err, shared.ErrInvalidCredentials) {
		t.Fatal("expected form to stay open with the error")
	}

	f.model.login.password.SetValue("secret")
	_, cmd = f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	f.model.Update(cmd())
	if f.model.login != nil {
		t.Error("expected form to close after sign in")
	}
	if f.session.user == nil || f.session.user.Email != "nina@example.com" {
		t.Errorf("unexpected user %+v", f.session.user)
	}
	if !strings.Contains(f.model.View(), "nina") {
		t.Error("expected account name in the tab bar")
	}

	f.model.Update(keyRunes("u"))
	if f.session.user != nil {
		t.Error("expected sign out")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{shared.ErrNotAuthenticated, "Sign in first (u)"},
		{player.ErrNoTrack, "Select a track first"},
		{player.ErrPending, "Still saving the previous change"},
		{player.ErrNoDefaultPlaylist, "No liked-songs playlist for this account"},
		{player.ErrSuperseded, ""},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := describe(tt.err); got != tt.want {
			t.Errorf("describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRenderPlayerBar(t *testing.T) {
	if got := renderPlayerBar(player.State{}, "", 80); !strings.Contains(got, "Nothing playing") {
		t.Errorf("expected idle text, got %q", got)
	}

	song := models.Song{ID: "s1", Title: "First"}
	got := renderPlayerBar(player.State{Phase: player.Playing, Track: &song, TrackID: "s1", Progress: 65, Duration: 200, Volume: 0.5, Liked: true}, "Nina", 80)
	for _, want := range []string{"First", "Nina", "1:05", "3:20", "vol 50%", "♥"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
