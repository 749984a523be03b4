package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

type fakeCatalog struct {
	mu        sync.Mutex
	songs     map[string]*models.Song
	playlists map[string]*models.Playlist
	defaultID string

	songGate   map[string]chan struct{} // Song blocks on the gate for its id
	songStart  chan string
	mutateGate chan struct{}
	mutateSeen chan struct{}
	mutateErr  error
	addCalls   int
	listGate   chan struct{} // UserPlaylists takes its snapshot, then waits on the gate
	listSeen   chan struct{}
}

func newFakeCatalog() *fakeCatalog {
	f := &fakeCatalog{
		songs:     make(map[string]*models.Song),
		playlists: make(map[string]*models.Playlist),
		songGate:  make(map[string]chan struct{}),
		songStart: make(chan string, 8),
	}
	for i, id := range []string{"a", "b", "c"} {
		f.songs[id] = &models.Song{ID: id, SongID: fmt.Sprintf("%04d", i+1), Title: "Song " + id, DurationSec: 200}
	}
	f.defaultID = "p-liked"
	f.playlists["p-liked"] = &models.Playlist{ID: "p-liked", Name: models.DefaultPlaylistName, UserID: "u1"}
	f.playlists["p-mix"] = &models.Playlist{ID: "p-mix", Name: "Mix", UserID: "u1"}
	return f
}

func (f *fakeCatalog) Song(ctx context.Context, id string) (*models.Song, error) {
	f.mu.Lock()
	gate := f.songGate[id]
	song, ok := f.songs[id]
	f.mu.Unlock()

	f.songStart <- id
	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", shared.ErrAPIRequest, shared.ErrNotFound, id)
	}
	return song, nil
}

func (f *fakeCatalog) DefaultPlaylist(ctx context.Context, userID string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[f.defaultID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) UserPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error) {
	f.mu.Lock()
	var out []*models.Playlist
	for _, id := range []string{"p-mix", "p-liked"} {
		if p, ok := f.playlists[id]; ok {
			cp := *p
			cp.Songs = append([]models.Song(nil), p.Songs...)
			out = append(out, &cp)
		}
	}
	f.mu.Unlock()

	if f.listSeen != nil {
		f.listSeen <- struct{}{}
	}
	if f.listGate != nil {
		<-f.listGate
	}
	return out, nil
}

func (f *fakeCatalog) mutate(playlistID, songID string, add bool) error {
	if f.mutateSeen != nil {
		f.mutateSeen <- struct{}{}
	}
	if f.mutateGate != nil {
		<-f.mutateGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if add {
		f.addCalls++
	}
	if f.mutateErr != nil {
		return f.mutateErr
	}
	p := f.playlists[playlistID]
	if add {
		*p = p.WithSong(*f.songs[songID])
	} else {
		*p = p.WithoutSong(songID)
	}
	return nil
}

func (f *fakeCatalog) AddSong(ctx context.Context, playlistID, songID string) error {
	return f.mutate(playlistID, songID, true)
}

func (f *fakeCatalog) RemoveSong(ctx context.Context, playlistID, songID string) error {
	return f.mutate(playlistID, songID, false)
}

func (f *fakeCatalog) StreamURL(song *models.Song) string {
	return "http://stream.test/stream/" + song.FileName()
}

type fakeUsers struct{ user *models.User }

func (f *fakeUsers) User() *models.User { return f.user }

type fakeAudio struct {
	mu      sync.Mutex
	url     string
	emit    EventFunc
	playErr error
	playing bool
	volume  float64
	seekTo  float64
	closed  bool
}

func (a *fakeAudio) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playErr != nil {
		return a.playErr
	}
	a.playing = true
	return nil
}

func (a *fakeAudio) Pause() {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
}

func (a *fakeAudio) Seek(sec float64) error {
	a.mu.Lock()
	a.seekTo = sec
	a.mu.Unlock()
	return nil
}

func (a *fakeAudio) SetVolume(v float64) {
	a.mu.Lock()
	a.volume = v
	a.mu.Unlock()
}

func (a *fakeAudio) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

type audioRecorder struct {
	mu      sync.Mutex
	handles []*fakeAudio
	playErr error
}

func (r *audioRecorder) factory(ctx context.Context, url string, emit EventFunc) (Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &fakeAudio{url: url, emit: emit, playErr: r.playErr}
	r.handles = append(r.handles, a)
	return a, nil
}

func (r *audioRecorder) last() *fakeAudio {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[len(r.handles)-1]
}

func setupController(t *testing.T, signedIn bool) (*Controller, *fakeCatalog, *audioRecorder) {
	t.Helper()
	cat := newFakeCatalog()
	users := &fakeUsers{}
	if signedIn {
		users.user = &models.User{ID: "u1", Username: "ada"}
	}
	rec := &audioRecorder{}
	c := New(cat, users, WithAudioFactory(rec.factory))
	t.Cleanup(c.Close)
	return c, cat, rec
}

func mustSelect(t *testing.T, c *Controller, id string) {
	t.Helper()
	if err := c.Select(context.Background(), id); err != nil {
		t.Fatalf("select %s failed: %v", id, err)
	}
}

func TestSelect(t *testing.T) {
	t.Run("loads track and liked state", func(t *testing.T) {
		c, cat, rec := setupController(t, true)
		cat.playlists["p-liked"].Songs = []models.Song{*cat.songs["a"]}

		mustSelect(t, c, "a")
		s := c.State()
		if s.Phase != Paused || s.Track == nil || s.Track.ID != "a" {
			t.Fatalf("unexpected state %+v", s)
		}
		if !s.Liked || s.DefaultPlaylistID != "p-liked" {
			t.Errorf("expected liked from default playlist, got %+v", s)
		}
		if s.Duration != 200 || s.Progress != 0 {
			t.Errorf("expected duration from metadata, got %v/%v", s.Progress, s.Duration)
		}
		if rec.last().url != "http://stream.test/stream/0001.mp3" {
			t.Errorf("unexpected stream url %q", rec.last().url)
		}
	})

	t.Run("last selection wins", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		gate := make(chan struct{})
		cat.songGate["a"] = gate

		done := make(chan error, 1)
		go func() { done <- c.Select(context.Background(), "a") }()
		if id := <-cat.songStart; id != "a" {
			t.Fatalf("expected a to start first, got %s", id)
		}

		mustSelect(t, c, "b")
		close(gate)

		if err := <-done; !errors.Is(err, ErrSuperseded) {
			t.Errorf("expected superseded, got %v", err)
		}
		if s := c.State(); s.Track == nil || s.Track.ID != "b" || s.TrackID != "b" {
			t.Errorf("expected b to stay selected, got %+v", s)
		}
	})

	t.Run("reselect closes old handle and resets progress", func(t *testing.T) {
		c, _, rec := setupController(t, false)
		mustSelect(t, c, "a")
		first := rec.last()
		if err := c.Seek(50); err != nil {
			t.Fatalf("seek failed: %v", err)
		}

		mustSelect(t, c, "b")
		if !first.closed {
			t.Error("expected previous handle closed")
		}
		if s := c.State(); s.Progress != 0 {
			t.Errorf("expected progress reset, got %v", s.Progress)
		}

		first.emit(Event{Kind: EventProgress, Position: 99})
		if s := c.State(); s.Progress != 0 {
			t.Errorf("events from a replaced handle must be ignored, got %v", s.Progress)
		}
	})

	t.Run("failure returns to idle with error", func(t *testing.T) {
		c, _, _ := setupController(t, false)
		err := c.Select(context.Background(), "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		s := c.State()
		if s.Phase != Idle || s.Track != nil || s.Err == "" {
			t.Errorf("expected idle with error, got %+v", s)
		}
	})

	t.Run("missing default playlist is not an error", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		cat.defaultID = "none"

		mustSelect(t, c, "a")
		s := c.State()
		if s.Err != "" || s.DefaultPlaylistID != "" || s.Liked {
			t.Errorf("unexpected state %+v", s)
		}
		if err := c.ToggleLike(context.Background()); !errors.Is(err, ErrNoDefaultPlaylist) {
			t.Errorf("expected no default playlist, got %v", err)
		}
	})
}

func TestPlayback(t *testing.T) {
	t.Run("toggle without track is a no-op", func(t *testing.T) {
		c, _, _ := setupController(t, false)
		if err := c.TogglePlayback(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if c.State().Phase != Idle {
			t.Error("expected idle")
		}
	})

	t.Run("play and pause", func(t *testing.T) {
		c, _, rec := setupController(t, false)
		mustSelect(t, c, "a")

		if err := c.TogglePlayback(); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if s := c.State(); !s.Playing || !rec.last().playing {
			t.Errorf("expected playing, got %+v", s)
		}

		c.TogglePlayback()
		if s := c.State(); s.Playing || rec.last().playing {
			t.Errorf("expected paused, got %+v", s)
		}
	})

	t.Run("play error reverts to paused", func(t *testing.T) {
		c, _, rec := setupController(t, false)
		rec.playErr = errors.New("media error")
		mustSelect(t, c, "a")

		if err := c.TogglePlayback(); err == nil {
			t.Fatal("expected error")
		}
		s := c.State()
		if s.Phase != Paused || s.Err != "media error" {
			t.Errorf("expected paused with error, got %+v", s)
		}
	})

	t.Run("ended event pauses", func(t *testing.T) {
		c, _, rec := setupController(t, false)
		mustSelect(t, c, "a")
		c.TogglePlayback()

		rec.last().emit(Event{Kind: EventDuration, Duration: 180})
		rec.last().emit(Event{Kind: EventEnded, Position: 180})
		s := c.State()
		if s.Phase != Paused || s.Duration != 180 || s.Progress != 180 {
			t.Errorf("unexpected state after end %+v", s)
		}
	})
}

func TestSeek(t *testing.T) {
	c, _, rec := setupController(t, false)
	mustSelect(t, c, "a")

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := c.Seek(bad); !errors.Is(err, ErrInvalidSeek) {
			t.Errorf("Seek(%v): expected ErrInvalidSeek, got %v", bad, err)
		}
	}

	tc := []struct {
		in, want float64
	}{
		{30, 30},
		{-5, 0},
		{1000, 200},
	}
	for _, tt := range tc {
		if err := c.Seek(tt.in); err != nil {
			t.Fatalf("Seek(%v) failed: %v", tt.in, err)
		}
		if got := c.State().Progress; got != tt.want {
			t.Errorf("Seek(%v): progress %v, want %v", tt.in, got, tt.want)
		}
		if rec.last().seekTo != tt.want {
			t.Errorf("Seek(%v): audio at %v, want %v", tt.in, rec.last().seekTo, tt.want)
		}
	}
}

func TestSetVolume(t *testing.T) {
	c, _, rec := setupController(t, false)
	mustSelect(t, c, "a")

	tc := []struct {
		in, want float64
	}{
		{-0.2, 0},
		{1.5, 1},
		{0.4, 0.4},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tc {
		c.SetVolume(tt.in)
		if got := c.State().Volume; got != tt.want {
			t.Errorf("SetVolume(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if rec.last().volume != tt.want {
			t.Errorf("SetVolume(%v): audio volume %v", tt.in, rec.last().volume)
		}
	}
}

func TestToggleLike(t *testing.T) {
	t.Run("requires signed-in user and track", func(t *testing.T) {
		c, _, _ := setupController(t, false)
		mustSelect(t, c, "a")
		if err := c.ToggleLike(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected not authenticated, got %v", err)
		}

		c2, _, _ := setupController(t, true)
		if err := c2.ToggleLike(context.Background()); !errors.Is(err, ErrNoTrack) {
			t.Errorf("expected no track, got %v", err)
		}
	})

	t.Run("like then unlike", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		mustSelect(t, c, "a")

		if err := c.ToggleLike(context.Background()); err != nil {
			t.Fatalf("like failed: %v", err)
		}
		s := c.State()
		p, _ := s.Playlist("p-liked")
		if !s.Liked || !p.ContainsCurrent || p.TrackCount != 1 {
			t.Errorf("expected liked, got %+v / %+v", s, p)
		}
		if !cat.playlists["p-liked"].Contains("a") {
			t.Error("expected server-side membership")
		}

		if err := c.ToggleLike(context.Background()); err != nil {
			t.Fatalf("unlike failed: %v", err)
		}
		s = c.State()
		p, _ = s.Playlist("p-liked")
		if s.Liked || p.ContainsCurrent || p.TrackCount != 0 {
			t.Errorf("expected unliked, got %+v / %+v", s, p)
		}
	})

	t.Run("second toggle while pending is ignored", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		mustSelect(t, c, "a")
		cat.mutateGate = make(chan struct{})
		cat.mutateSeen = make(chan struct{}, 1)

		done := make(chan error, 1)
		go func() { done <- c.ToggleLike(context.Background()) }()
		<-cat.mutateSeen

		if !c.State().LikePending {
			t.Error("expected like pending")
		}
		if err := c.ToggleLike(context.Background()); !errors.Is(err, ErrPending) {
			t.Errorf("expected pending, got %v", err)
		}

		close(cat.mutateGate)
		if err := <-done; err != nil {
			t.Fatalf("like failed: %v", err)
		}
		if cat.addCalls != 1 {
			t.Errorf("expected one request, got %d", cat.addCalls)
		}
		if s := c.State(); !s.Liked || s.LikePending {
			t.Errorf("expected liked and settled, got %+v", s)
		}
	})

	t.Run("failure leaves state unchanged", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		mustSelect(t, c, "a")
		cat.mutateErr = fmt.Errorf("%w (status 500)", shared.ErrAPIRequest)

		if err := c.ToggleLike(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected API error, got %v", err)
		}
		s := c.State()
		if s.Liked || s.LikePending || s.Err == "" {
			t.Errorf("expected unchanged state with error, got %+v", s)
		}
	})
}

func TestTogglePlaylist(t *testing.T) {
	t.Run("membership and liked stay consistent", func(t *testing.T) {
		c, _, _ := setupController(t, true)
		mustSelect(t, c, "a")
		if err := c.LoadPlaylists(context.Background()); err != nil {
			t.Fatalf("load playlists failed: %v", err)
		}

		ctx := context.Background()
		if err := c.TogglePlaylist(ctx, "p-mix", true); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		s := c.State()
		mix, _ := s.Playlist("p-mix")
		if !mix.ContainsCurrent || s.Liked {
			t.Errorf("expected mix membership only, got %+v", s)
		}

		if err := c.TogglePlaylist(ctx, "p-liked", true); err != nil {
			t.Fatalf("add to default failed: %v", err)
		}
		if !c.State().Liked {
			t.Error("adding to the default playlist must mark the track liked")
		}

		if err := c.TogglePlaylist(ctx, "p-liked", false); err != nil {
			t.Fatalf("remove from default failed: %v", err)
		}
		s = c.State()
		liked, _ := s.Playlist("p-liked")
		if s.Liked != liked.ContainsCurrent || s.Liked {
			t.Errorf("liked %v must equal membership %v", s.Liked, liked.ContainsCurrent)
		}
	})

	t.Run("adding twice does not duplicate", func(t *testing.T) {
		c, _, _ := setupController(t, true)
		mustSelect(t, c, "a")
		c.LoadPlaylists(context.Background())

		for range 2 {
			if err := c.TogglePlaylist(context.Background(), "p-mix", true); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}
		if mix, _ := c.State().Playlist("p-mix"); mix.TrackCount != 1 {
			t.Errorf("expected 1 track, got %d", mix.TrackCount)
		}
	})
}

func TestLoadPlaylistsDuringMutation(t *testing.T) {
	t.Run("like settled mid-fetch survives the stale response", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		mustSelect(t, c, "a")
		cat.listGate = make(chan struct{})
		cat.listSeen = make(chan struct{}, 1)

		done := make(chan error, 1)
		go func() { done <- c.LoadPlaylists(context.Background()) }()
		<-cat.listSeen

		if err := c.ToggleLike(context.Background()); err != nil {
			t.Fatalf("like failed: %v", err)
		}
		close(cat.listGate)
		if err := <-done; err != nil {
			t.Fatalf("load failed: %v", err)
		}

		s := c.State()
		liked, ok := s.Playlist("p-liked")
		if !ok || !s.Liked || !liked.ContainsCurrent || liked.TrackCount != 1 {
			t.Errorf("expected the like to survive, got %+v / %+v", s, liked)
		}
		if mix, _ := s.Playlist("p-mix"); mix.ContainsCurrent {
			t.Error("edit must only apply to its own playlist")
		}
	})

	t.Run("unlike settled mid-fetch survives", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		cat.playlists["p-liked"].Songs = []models.Song{*cat.songs["a"]}
		mustSelect(t, c, "a")
		cat.listGate = make(chan struct{})
		cat.listSeen = make(chan struct{}, 1)

		done := make(chan error, 1)
		go func() { done <- c.LoadPlaylists(context.Background()) }()
		<-cat.listSeen

		if err := c.ToggleLike(context.Background()); err != nil {
			t.Fatalf("unlike failed: %v", err)
		}
		close(cat.listGate)
		<-done

		if s := c.State(); s.Liked {
			t.Errorf("expected unliked after the fetch, got %+v", s)
		}
	})

	t.Run("edits before the fetch are not replayed", func(t *testing.T) {
		c, cat, _ := setupController(t, true)
		mustSelect(t, c, "a")
		if err := c.ToggleLike(context.Background()); err != nil {
			t.Fatalf("like failed: %v", err)
		}
		// removed elsewhere; the next fetch is authoritative
		cat.playlists["p-liked"].Songs = nil

		if err := c.LoadPlaylists(context.Background()); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if s := c.State(); s.Liked {
			t.Errorf("expected server state, got %+v", s)
		}
	})
}

func TestLoadPlaylistsAndUserChange(t *testing.T) {
	c, _, _ := setupController(t, true)
	if err := c.LoadPlaylists(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	s := c.State()
	if len(s.Playlists) != 2 || s.DefaultPlaylistID != "p-liked" {
		t.Fatalf("unexpected playlists %+v", s)
	}

	c.UserChanged()
	s = c.State()
	if len(s.Playlists) != 0 || s.DefaultPlaylistID != "" {
		t.Errorf("expected cleared playlists, got %+v", s)
	}

	anon, _, _ := setupController(t, false)
	if err := anon.LoadPlaylists(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected not authenticated, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	c, _, _ := setupController(t, false)
	updates, unsubscribe := c.Subscribe()

	if s := <-updates; s.Phase != Idle {
		t.Errorf("expected initial idle state, got %v", s.Phase)
	}

	mustSelect(t, c, "a")
	deadline := time.After(time.Second)
	for {
		select {
		case s := <-updates:
			if s.Phase == Paused {
				unsubscribe()
				if _, ok := <-updates; ok {
					// a buffered state may remain; the channel must close after it
					if _, ok := <-updates; ok {
						t.Error("expected channel closed after unsubscribe")
					}
				}
				return
			}
		case <-deadline:
			t.Fatal("did not observe paused state")
		}
	}
}

func TestClose(t *testing.T) {
	c, _, rec := setupController(t, false)
	mustSelect(t, c, "a")
	updates, _ := c.Subscribe()

	c.Close()
	if !rec.last().closed {
		t.Error("expected audio closed")
	}
	for range updates {
	}
	if err := c.Select(context.Background(), "b"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed, got %v", err)
	}
}
