// Package catalog implements the catalog use cases behind the HTTP API: accounts, artists, songs and playlists.
//
// The [Service] validates input, hashes passwords and keeps the per-user default playlist in place;
// persistence is delegated to a [models.Store] (SQLite or MongoDB).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// Service implements catalog operations on top of a [models.Store].
type Service struct {
	store    models.Store
	logger   *log.Logger
	hashCost int
}

// Option configures a [Service].
type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use [bcrypt.MinCost].
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService creates a catalog service. A nil logger writes to stderr.
func NewService(store models.Store, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &Service{store: store, logger: logger, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for tasks that work below the service layer.
func (s *Service) Store() models.Store {
	return s.store
}

// Register creates an account and its default playlist. When the playlist cannot be created
// the account is removed again, so the registration can be retried.
//
// Missing fields yield [shared.ErrInvalidInput]; a taken username or email yields [shared.ErrConflict].
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = models.NormalizeEmail(email)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email, password required", shared.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.EnsureDefaultPlaylist(ctx, user.ID); err != nil {
		s.logger.Error("failed to create default playlist", "user", user.ID, "error", err)
		if derr := s.store.Users().Delete(context.WithoutCancel(ctx), user.ID); derr != nil {
			s.logger.Error("failed to roll back user", "user", user.ID, "error", derr)
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}

	s.logger.Info("registered user", "user", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials and returns the account. Unknown emails and bad passwords both yield [shared.ErrInvalidCredentials].
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateArtist adds an artist by name.
func (s *Service) CreateArtist(ctx context.Context, name string) (*models.Artist, error) {
	artist := &models.Artist{Name: name}
	if err := s.store.Artists().Create(ctx, artist); err != nil {
		return nil, err
	}
	return artist, nil
}

// Artists lists artists whose name contains q, sorted by name.
func (s *Service) Artists(ctx context.Context, q string) ([]*models.Artist, error) {
	return s.store.Artists().Search(ctx, q)
}

// ArtistByName returns the artist with this exact name, creating it when absent.
func (s *Service) ArtistByName(ctx context.Context, name string) (*models.Artist, error) {
	artist, err := s.store.Artists().GetByName(ctx, strings.TrimSpace(name))
	if err == nil {
		return artist, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return s.CreateArtist(ctx, name)
}

// Songs returns one page of songs matching q.
func (s *Service) Songs(ctx context.Context, q models.SongQuery) (models.Page[*models.Song], error) {
	return s.store.Songs().Search(ctx, q)
}

// LatestSongs returns one page of the newest songs.
func (s *Service) LatestSongs(ctx context.Context, page, size int) (models.Page[*models.Song], error) {
	return s.store.Songs().Search(ctx, models.SongQuery{Page: page, Size: size})
}

// Song returns a single song by catalog id.
func (s *Service) Song(ctx context.Context, id string) (*models.Song, error) {
	return s.store.Songs().Get(ctx, id)
}

// UserPlaylists lists a user's playlists newest first with songs attached.
func (s *Service) UserPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id required", shared.ErrInvalidInput)
	}
	return s.store.Playlists().ListByUser(ctx, userID)
}

// CreatePlaylist adds an empty playlist for userID.
func (s *Service) CreatePlaylist(ctx context.Context, name, userID string) (*models.Playlist, error) {
	playlist := &models.Playlist{Name: name, UserID: userID}
	if err := s.store.Playlists().Create(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// DefaultPlaylist returns the user's liked-songs playlist.
func (s *Service) DefaultPlaylist(ctx context.Context, userID string) (*models.Playlist, error) {
	return s.store.Playlists().GetByName(ctx, userID, models.DefaultPlaylistName)
}

// EnsureDefaultPlaylist returns the user's liked-songs playlist, creating it when absent.
func (s *Service) EnsureDefaultPlaylist(ctx context.Context, userID string) (*models.Playlist, error) {
	playlist, err := s.DefaultPlaylist(ctx, userID)
	if err == nil {
		return playlist, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return s.CreatePlaylist(ctx, models.DefaultPlaylistName, userID)
}

// Playlist returns a playlist with its songs.
func (s *Service) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	return s.store.Playlists().Get(ctx, id)
}

// RenamePlaylist changes a playlist's name.
func (s *Service) RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error) {
	return s.store.Playlists().Rename(ctx, id, name)
}

// DeletePlaylist removes a playlist and its membership.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	return s.store.Playlists().Delete(ctx, id)
}

// AddSong adds a song to a playlist. Repeating the call is harmless.
func (s *Service) AddSong(ctx context.Context, playlistID, songID string) error {
	if strings.TrimSpace(songID) == "" {
		return fmt.Errorf("%w: song_id required", shared.ErrInvalidInput)
	}
	return s.store.Playlists().AddSong(ctx, playlistID, songID)
}

// RemoveSong removes a song from a playlist.
func (s *Service) RemoveSong(ctx context.Context, playlistID, songID string) error {
	return s.store.Playlists().RemoveSong(ctx, playlistID, songID)
}
