// Package player implements the now-playing controller: one audio session and its
// relation to the signed-in user's playlists.
//
// The controller is safe for concurrent use. Every selection carries a generation
// number and its own context; responses and audio events from an older generation
// are dropped, so the last selection always wins. Whether the current track is
// liked is never stored: it is read from the cached default playlist, which is the
// only copy of that membership.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSuperseded        = fmt.Errorf("selection superseded")
	ErrInvalidSeek       = fmt.Errorf("%w: seek position must be finite", shared.ErrInvalidArgument)
	ErrNoTrack           = fmt.Errorf("no track loaded")
	ErrPending           = fmt.Errorf("playlist update already in progress")
	ErrNoDefaultPlaylist = fmt.Errorf("default playlist unknown")
	ErrClosed            = fmt.Errorf("player closed")
)

// Catalog is the part of the catalog client the controller needs.
type Catalog interface {
	Song(ctx context.Context, id string) (*models.Song, error)
	DefaultPlaylist(ctx context.Context, userID string) (*models.Playlist, error)
	UserPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error)
	AddSong(ctx context.Context, playlistID, songID string) error
	RemoveSong(ctx context.Context, playlistID, songID string) error
	StreamURL(song *models.Song) string
}

// UserSource reports the signed-in user; [session.Session] implements it.
type UserSource interface {
	User() *models.User
}

// Controller owns the now-playing state.
type Controller struct {
	catalog  Catalog
	users    UserSource
	newAudio AudioFactory
	logger   *log.Logger

	mu           sync.Mutex
	phase        Phase
	trackID      string
	track        *models.Song
	progress     float64
	duration     float64
	volume       float64
	defaultID    string
	playlists    []models.Playlist
	pending      map[string]bool
	errMsg       string
	gen          uint64
	userGen      uint64
	cancelSelect context.CancelFunc
	audio        Audio
	editSeq      uint64
	edits        []playlistEdit
	loading      int
	subs         map[int]chan State
	nextSub      int
	closed       bool
}

// playlistEdit is a membership change that settled while a playlist fetch was in flight.
type playlistEdit struct {
	seq        uint64
	playlistID string
	song       models.Song
	add        bool
}

// Option configures a [Controller].
type Option func(*Controller)

// WithAudioFactory replaces the audio engine. The default is [StreamAudioFactory] with no options.
func WithAudioFactory(f AudioFactory) Option {
	return func(c *Controller) { c.newAudio = f }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithVolume sets the initial volume, clamped to [0, 1].
func WithVolume(v float64) Option {
	return func(c *Controller) { c.volume = clampVolume(v) }
}

// New creates an idle controller.
func New(catalog Catalog, users UserSource, opts ...Option) *Controller {
	c := &Controller{
		catalog: catalog,
		users:   users,
		volume:  1,
		pending: make(map[string]bool),
		subs:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.newAudio == nil {
		c.newAudio = StreamAudioFactory()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Select loads the track with catalog id and, for a signed-in user, the default playlist
// in parallel. It blocks until the load settles.
//
// A newer Select cancels this one, which then returns [ErrSuperseded] without touching
// state. On failure the controller returns to Idle with the error surfaced; on success
// it is Paused with a fresh audio handle.
func (c *Controller) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.cancelSelect != nil {
		c.cancelSelect()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancelSelect = cancel

	old := c.audio
	c.audio = nil
	c.phase = Loading
	c.trackID = id
	c.track = nil
	c.progress = 0
	c.duration = 0
	c.errMsg = ""
	userID, userGen := c.userID(), c.userGen
	var since uint64
	if userID != "" {
		since = c.beginLoadLocked()
	}
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	c.notify()

	var (
		song     *models.Song
		liked    *models.Playlist
		likedErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		song, err = c.catalog.Song(gctx, id)
		return err
	})
	if userID != "" {
		g.Go(func() error {
			liked, likedErr = c.catalog.DefaultPlaylist(gctx, userID)
			return nil
		})
	}
	err := g.Wait()

	var audio Audio
	if err == nil {
		audio, err = c.newAudio(ctx, c.catalog.StreamURL(song), c.audioEvents(gen))
	}

	c.mu.Lock()
	if userID != "" {
		if liked != nil && userGen == c.userGen {
			p := c.reapplyLocked(*liked, since)
			liked = &p
		}
		c.endLoadLocked()
	}
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		if audio != nil {
			audio.Close()
		}
		return ErrSuperseded
	}

	if err != nil {
		c.phase = Idle
		c.track = nil
		if !isCanceled(err) {
			c.errMsg = err.Error()
			c.logger.Error("failed to load track", "id", id, "error", err)
		}
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.track = song
	c.duration = song.DurationSec
	c.phase = Paused
	c.audio = audio
	audio.SetVolume(c.volume)

	switch {
	case userGen != c.userGen:
	case likedErr == nil && liked != nil:
		c.defaultID = liked.ID
		c.storePlaylist(*liked)
	case errors.Is(likedErr, shared.ErrNotFound):
		c.logger.Debug("user has no default playlist", "user", userID)
	case likedErr != nil && !isCanceled(likedErr):
		c.errMsg = likedErr.Error()
		c.logger.Warn("failed to load default playlist", "user", userID, "error", likedErr)
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// TogglePlayback flips between Playing and Paused. Without a loaded track it does nothing.
// When the audio fails to start the state reverts to Paused and the error is surfaced;
// a stream that fails after Play returns does the same through an [EventError].
func (c *Controller) TogglePlayback() error {
	c.mu.Lock()
	if c.audio == nil || c.track == nil {
		c.mu.Unlock()
		return nil
	}
	audio, gen := c.audio, c.gen
	wasPlaying := c.phase == Playing
	if wasPlaying {
		c.phase = Paused
	} else {
		c.phase = Playing
		c.errMsg = ""
	}
	c.mu.Unlock()
	c.notify()

	if wasPlaying {
		audio.Pause()
		return nil
	}

	if err := audio.Play(); err != nil {
		c.mu.Lock()
		if gen == c.gen && c.audio == audio {
			c.phase = Paused
			c.errMsg = err.Error()
		}
		c.mu.Unlock()
		c.logger.Error("playback failed", "error", err)
		c.notify()
		return err
	}
	return nil
}

// Seek moves playback to t seconds. Non-finite input is rejected with [ErrInvalidSeek];
// negative input clamps to 0 and input past a known duration clamps to the end.
func (c *Controller) Seek(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return ErrInvalidSeek
	}

	c.mu.Lock()
	if c.track == nil {
		c.mu.Unlock()
		return nil
	}
	t = max(t, 0)
	if c.duration > 0 {
		t = min(t, c.duration)
	}
	c.progress = t
	audio := c.audio
	c.mu.Unlock()

	var err error
	if audio != nil {
		if err = audio.Seek(t); err != nil {
			c.setError(err)
		}
	}
	c.notify()
	return err
}

// SetVolume stores v clamped to [0, 1] (NaN becomes 0) and applies it to the audio.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = clampVolume(v)
	audio, volume := c.audio, c.volume
	c.mu.Unlock()

	if audio != nil {
		audio.SetVolume(volume)
	}
	c.notify()
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

// ToggleLike adds the current track to the default playlist, or removes it when already liked.
//
// It requires a signed-in user, a loaded track, a known default playlist and no like already in flight.
func (c *Controller) ToggleLike(ctx context.Context) error {
	c.mu.Lock()
	if c.userID() == "" {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	if c.track == nil {
		c.mu.Unlock()
		return ErrNoTrack
	}
	if c.defaultID == "" {
		c.mu.Unlock()
		return ErrNoDefaultPlaylist
	}
	id := c.defaultID
	shouldAdd := !c.containsLocked(id, c.track.ID)
	c.mu.Unlock()

	return c.TogglePlaylist(ctx, id, shouldAdd)
}

// TogglePlaylist adds the current track to playlistID or removes it from it.
//
// A second call for a playlist with a request in flight returns [ErrPending] without a request.
// On success the cached playlist is replaced by an edited copy; on failure nothing changes and the
// error is surfaced. Requests are never retried.
func (c *Controller) TogglePlaylist(ctx context.Context, playlistID string, shouldAdd bool) error {
	c.mu.Lock()
	if c.userID() == "" {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	if c.track == nil {
		c.mu.Unlock()
		return ErrNoTrack
	}
	if c.pending[playlistID] {
		c.mu.Unlock()
		return ErrPending
	}
	c.pending[playlistID] = true
	song := *c.track
	userGen := c.userGen
	c.mu.Unlock()
	c.notify()

	var err error
	if shouldAdd {
		err = c.catalog.AddSong(ctx, playlistID, song.ID)
	} else {
		err = c.catalog.RemoveSong(ctx, playlistID, song.ID)
	}

	c.mu.Lock()
	if userGen != c.userGen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	delete(c.pending, playlistID)
	if err != nil {
		if !isCanceled(err) {
			c.errMsg = err.Error()
			c.logger.Error("failed to update playlist", "playlist", playlistID, "song", song.ID, "add", shouldAdd, "error", err)
		}
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.recordEditLocked(playlistID, song, shouldAdd)
	if i := c.indexLocked(playlistID); i >= 0 {
		if shouldAdd {
			c.playlists[i] = c.playlists[i].WithSong(song)
		} else {
			c.playlists[i] = c.playlists[i].WithoutSong(song.ID)
		}
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// LoadPlaylists replaces the cached playlists with every playlist of the signed-in user.
// Membership changes that settle while the request is in flight are applied on top of the response.
func (c *Controller) LoadPlaylists(ctx context.Context) error {
	c.mu.Lock()
	userID, userGen := c.userID(), c.userGen
	if userID == "" {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	since := c.beginLoadLocked()
	c.mu.Unlock()

	playlists, err := c.catalog.UserPlaylists(ctx, userID)

	c.mu.Lock()
	if err == nil && userGen == c.userGen {
		for _, p := range playlists {
			*p = c.reapplyLocked(*p, since)
		}
	}
	c.endLoadLocked()
	if userGen != c.userGen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		if !isCanceled(err) {
			c.errMsg = err.Error()
			c.logger.Error("failed to load playlists", "user", userID, "error", err)
		}
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.playlists = c.playlists[:0]
	for _, p := range playlists {
		c.playlists = append(c.playlists, *p)
		if p.IsDefault() && c.defaultID == "" {
			c.defaultID = p.ID
		}
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// UserChanged drops everything cached for the previous user. In-flight playlist requests
// for that user are discarded when they return.
func (c *Controller) UserChanged() {
	c.mu.Lock()
	c.userGen++
	c.defaultID = ""
	c.playlists = nil
	c.pending = make(map[string]bool)
	c.edits = nil
	c.mu.Unlock()
	c.notify()
}

// ClearError dismisses the surfaced error.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
	c.notify()
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives the latest state after every change and a
// function that removes the subscription. Slow readers only miss intermediate states.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close cancels in-flight work, releases the audio handle and closes subscriber channels.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancelSelect != nil {
		c.cancelSelect()
	}
	audio := c.audio
	c.audio = nil
	c.phase = Idle
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	if audio != nil {
		audio.Close()
	}
}

// audioEvents binds audio events to selection gen; events from replaced handles are ignored.
func (c *Controller) audioEvents(gen uint64) EventFunc {
	return func(ev Event) {
		c.mu.Lock()
		if gen != c.gen || c.audio == nil {
			c.mu.Unlock()
			return
		}

		switch ev.Kind {
		case EventProgress:
			c.progress = ev.Position
		case EventDuration:
			c.duration = ev.Duration
		case EventEnded:
			c.phase = Paused
			c.progress = max(ev.Position, c.duration)
		case EventError:
			c.phase = Paused
			if ev.Err != nil && !isCanceled(ev.Err) {
				c.errMsg = ev.Err.Error()
			}
		}
		c.mu.Unlock()
		c.notify()
	}
}

func (c *Controller) setError(err error) {
	if isCanceled(err) {
		return
	}
	c.mu.Lock()
	c.errMsg = err.Error()
	c.mu.Unlock()
}

func (c *Controller) userID() string {
	if c.users == nil {
		return ""
	}
	if u := c.users.User(); u != nil {
		return u.ID
	}
	return ""
}

func (c *Controller) indexLocked(playlistID string) int {
	return slices.IndexFunc(c.playlists, func(p models.Playlist) bool { return p.ID == playlistID })
}

func (c *Controller) containsLocked(playlistID, songID string) bool {
	i := c.indexLocked(playlistID)
	return i >= 0 && c.playlists[i].Contains(songID)
}

// storePlaylist inserts or replaces a cached playlist.
// beginLoadLocked marks a playlist fetch in flight and returns the edit sequence it starts from.
func (c *Controller) beginLoadLocked() uint64 {
	c.loading++
	return c.editSeq
}

func (c *Controller) endLoadLocked() {
	c.loading--
	if c.loading == 0 {
		c.edits = nil
	}
}

// recordEditLocked keeps a settled edit for the fetches still in flight.
func (c *Controller) recordEditLocked(playlistID string, song models.Song, add bool) {
	c.editSeq++
	if c.loading > 0 {
		c.edits = append(c.edits, playlistEdit{seq: c.editSeq, playlistID: playlistID, song: song, add: add})
	}
}

// reapplyLocked replays onto p the edits that settled after since.
func (c *Controller) reapplyLocked(p models.Playlist, since uint64) models.Playlist {
	for _, e := range c.edits {
		if e.seq <= since || e.playlistID != p.ID {
			continue
		}
		if e.add {
			p = p.WithSong(e.song)
		} else {
			p = p.WithoutSong(e.song.ID)
		}
	}
	return p
}

func (c *Controller) storePlaylist(p models.Playlist) {
	if i := c.indexLocked(p.ID); i >= 0 {
		c.playlists[i] = p
		return
	}
	c.playlists = append(c.playlists, p)
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Phase:             c.phase,
		TrackID:           c.trackID,
		Playing:           c.phase == Playing,
		Progress:          c.progress,
		Duration:          c.duration,
		Volume:            c.volume,
		DefaultPlaylistID: c.defaultID,
		LikePending:       c.defaultID != "" && c.pending[c.defaultID],
		Err:               c.errMsg,
	}
	if c.track != nil {
		track := *c.track
		s.Track = &track
		s.Liked = c.containsLocked(c.defaultID, track.ID)
	}

	s.Playlists = make([]PlaylistState, 0, len(c.playlists))
	for _, p := range c.playlists {
		s.Playlists = append(s.Playlists, PlaylistState{
			ID:              p.ID,
			Name:            p.Name,
			TrackCount:      p.TrackCount(),
			TotalDuration:   p.TotalDuration(),
			IsDefault:       p.ID == c.defaultID,
			ContainsCurrent: s.Track != nil && p.Contains(s.Track.ID),
			Pending:         c.pending[p.ID],
		})
	}
	return s
}

// notify sends the latest snapshot to every subscriber without blocking, replacing any unread one.
func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return
	}

	s := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
