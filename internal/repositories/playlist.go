package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// PlaylistRepository implements [models.PlaylistStore].
//
// Membership lives in playlist_songs; every read returns the playlist with its songs attached.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	playlist.Name = strings.TrimSpace(playlist.Name)
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	id := shared.GenerateID()

	query := `
		INSERT INTO playlists (id, sequence, name, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query, id, sequence, playlist.Name, playlist.UserID, now, now)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return fmt.Errorf("%w: %s", shared.ErrUserNotFound, playlist.UserID)
		}
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	playlist.ID = id
	playlist.CreatedAt = now
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}
	return nil
}

// Get retrieves a playlist and its songs by ID
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `
		SELECT id, name, user_id, created_at
		FROM playlists
		WHERE id = ? AND deleted_at IS NULL
	`

	playlist, err := r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
	if err != nil {
		return nil, err
	}
	if err := r.attachSongs(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// GetByName retrieves the oldest playlist with this name owned by userID
func (r *PlaylistRepository) GetByName(ctx context.Context, userID, name string) (*models.Playlist, error) {
	query := `
		SELECT id, name, user_id, created_at
		FROM playlists
		WHERE user_id = ? AND name = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
		LIMIT 1
	`

	playlist, err := r.scanOne(r.db.QueryRowContext(ctx, query, userID, name), name)
	if err != nil {
		return nil, err
	}
	if err := r.attachSongs(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// ListByUser retrieves every playlist owned by userID, newest first, with songs attached
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error) {
	query := `
		SELECT id, name, user_id, created_at
		FROM playlists
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, sequence DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if err := r.attachSongs(ctx, playlists...); err != nil {
		return nil, err
	}
	return playlists, nil
}

// Rename changes a playlist's name and returns the updated playlist
func (r *PlaylistRepository) Rename(ctx context.Context, id, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("validation failed: %w: name required", shared.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE playlists SET name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rename playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return r.Get(ctx, id)
}

// Delete removes a playlist; its membership rows cascade
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// AddSong links a song to a playlist. Adding an existing member is a no-op.
func (r *PlaylistRepository) AddSong(ctx context.Context, playlistID, songID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ? AND deleted_at IS NULL)`, playlistID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check playlist: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM songs WHERE id = ? AND deleted_at IS NULL)`, songID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check song: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, songID)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, added_at) VALUES (?, ?, ?)`,
		playlistID, songID, time.Now().UTC(),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return fmt.Errorf("%w: %s", shared.ErrNotFound, songID)
		}
		return fmt.Errorf("failed to add song to playlist: %w", err)
	}
	return nil
}

// RemoveSong unlinks a song from a playlist. Removing a non-member is a no-op.
func (r *PlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to remove song from playlist: %w", err)
	}
	return nil
}

// attachSongs loads the member songs of every given playlist in one query
func (r *PlaylistRepository) attachSongs(ctx context.Context, playlists ...*models.Playlist) error {
	if len(playlists) == 0 {
		return nil
	}

	byID := make(map[string]*models.Playlist, len(playlists))
	args := make([]any, 0, len(playlists))
	for _, p := range playlists {
		p.Songs = []models.Song{}
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	query := `
		SELECT ps.playlist_id, ` + songColumns + `
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id IN (` + placeholders(len(args)) + `) AND s.deleted_at IS NULL
		ORDER BY ps.added_at ASC, s.sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var playlistID string
		song, err := scanSong(prefixScanner{rows, []any{&playlistID}})
		if err != nil {
			return err
		}
		if p, ok := byID[playlistID]; ok {
			p.Songs = append(p.Songs, *song)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	return &p, nil
}

// prefixScanner scans leading columns into prefix before handing the rest to the caller's destinations.
type prefixScanner struct {
	scanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.scanner.Scan(slices.Concat(p.prefix, dest)...)
}
