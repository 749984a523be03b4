// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/mattn/go-sqlite3"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., song #42, playlist #15).
// They are NOT exposed in API output but used internally for sorting and debugging.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// Store implements [models.Store] on a SQLite database.
type Store struct {
	db        *sql.DB
	users     *UserRepository
	artists   *ArtistRepository
	songs     *SongRepository
	playlists *PlaylistRepository
}

// NewStore wires every repository to db. The caller is expected to have run migrations.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		users:     NewUserRepository(db),
		artists:   NewArtistRepository(db),
		songs:     NewSongRepository(db),
		playlists: NewPlaylistRepository(db),
	}
}

func (s *Store) Users() models.UserStore         { return s.users }
func (s *Store) Artists() models.ArtistStore     { return s.artists }
func (s *Store) Songs() models.SongStore         { return s.songs }
func (s *Store) Playlists() models.PlaylistStore { return s.playlists }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// isConstraint reports whether err is a SQLite constraint violation with the given extended code.
func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == code
}

// likePattern builds a LIKE pattern matching q anywhere, escaping LIKE wildcards with a backslash.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
