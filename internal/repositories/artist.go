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

// ArtistRepository implements [models.ArtistStore].
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new [ArtistRepository] with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new artist with generated ID and sequence. Names are not unique.
func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	artist.Name = strings.TrimSpace(artist.Name)
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "artists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	id := shared.GenerateID()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO artists (id, sequence, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, sequence, artist.Name, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	artist.ID = id
	artist.CreatedAt = now
	return nil
}

// Get retrieves an artist by ID
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM artists WHERE id = ? AND deleted_at IS NULL`, id)
	return r.scanOne(row, id)
}

// GetByName retrieves the first artist created with exactly this name
func (r *ArtistRepository) GetByName(ctx context.Context, name string) (*models.Artist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM artists WHERE name = ? AND deleted_at IS NULL ORDER BY sequence ASC LIMIT 1`, name)
	return r.scanOne(row, name)
}

// Search lists artists whose name contains q, ignoring case, sorted by name
func (r *ArtistRepository) Search(ctx context.Context, q string) ([]*models.Artist, error) {
	query := `SELECT id, name, created_at FROM artists WHERE deleted_at IS NULL`
	args := []any{}

	if q = strings.TrimSpace(q); q != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q))
	}

	query += " ORDER BY name COLLATE NOCASE ASC, sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []*models.Artist{}
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Delete soft-deletes an artist by ID
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE artists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
	}

	return nil
}

func (r *ArtistRepository) scanOne(row *sql.Row, key string) (*models.Artist, error) {
	var a models.Artist
	err := row.Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	return &a, nil
}
