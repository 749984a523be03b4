package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

const songColumns = `s.id, s.song_id, s.title, s.artist_id, s.album, s.duration_sec, s.release_year, s.cover, s.audio_url, s.created_at`

// SongRepository implements [models.SongStore].
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new [SongRepository] with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Create inserts a new song with generated ID and sequence.
//
// created_at is taken from the song when set so imports can preserve ordering.
func (r *SongRepository) Create(ctx context.Context, song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	created := song.CreatedAt
	if created.IsZero() {
		created = now
	}
	id := shared.GenerateID()

	var artistID sql.NullString
	if song.ArtistID != "" {
		artistID = sql.NullString{String: song.ArtistID, Valid: true}
	}

	query := `
		INSERT INTO songs (id, sequence, song_id, title, artist_id, album, duration_sec, release_year, cover, audio_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		song.SongID,
		song.Title,
		artistID,
		song.Album,
		song.DurationSec,
		song.ReleaseYear,
		song.Cover,
		song.AudioURL,
		created,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	song.ID = id
	song.CreatedAt = created
	return nil
}

// Get retrieves a song by catalog ID, excluding soft-deleted songs
func (r *SongRepository) Get(ctx context.Context, id string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs s WHERE s.id = ? AND s.deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetBySongID retrieves the oldest song with the given external id
func (r *SongRepository) GetBySongID(ctx context.Context, songID string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs s WHERE s.song_id = ? AND s.deleted_at IS NULL ORDER BY s.sequence ASC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, songID), songID)
}

// Search returns one page of songs, newest first.
//
// Q matches a case-insensitive title substring; SongID and ArtistID match exactly.
func (r *SongRepository) Search(ctx context.Context, q models.SongQuery) (models.Page[*models.Song], error) {
	page, size := models.ClampPaging(q.Page, q.Size)
	result := models.Page[*models.Song]{Items: []*models.Song{}, Page: page, Size: size}

	where := []string{"s.deleted_at IS NULL"}
	args := []any{}

	if text := strings.TrimSpace(q.Q); text != "" {
		where = append(where, `s.title LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(text))
	}
	if q.SongID != "" {
		where = append(where, "s.song_id = ?")
		args = append(args, q.SongID)
	}
	if q.ArtistID != "" {
		where = append(where, "s.artist_id = ?")
		args = append(args, q.ArtistID)
	}

	clause := strings.Join(where, " AND ")

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs s WHERE "+clause, args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("failed to count songs: %w", err)
	}

	query := `SELECT ` + songColumns + ` FROM songs s WHERE ` + clause + ` ORDER BY s.created_at DESC, s.sequence DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, size, models.Offset(page, size))...)
	if err != nil {
		return result, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, song)
	}

	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// IDs lists the catalog ids of all songs in insertion order
func (r *SongRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM songs WHERE deleted_at IS NULL ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query song ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan song id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete soft-deletes a song by ID
func (r *SongRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE songs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// scanOne scans a single [sql.Row] into a [models.Song]
func (r *SongRepository) scanOne(row *sql.Row, key string) (*models.Song, error) {
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	return song, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSong reads the columns listed in songColumns.
func scanSong(row scanner) (*models.Song, error) {
	var (
		song     models.Song
		artistID sql.NullString
		duration sql.NullFloat64
	)

	err := row.Scan(
		&song.ID,
		&song.SongID,
		&song.Title,
		&artistID,
		&song.Album,
		&duration,
		&song.ReleaseYear,
		&song.Cover,
		&song.AudioURL,
		&song.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song.ArtistID = artistID.String
	song.DurationSec = duration.Float64
	return &song, nil
}
