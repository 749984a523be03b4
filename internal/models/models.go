// package models defines the data model for the music catalog
package models

import (
	"context"
)

// Model defines the base interface for all persistent models in the catalog.
type Model interface {
	Key() string     // Key returns the unique identifier for this model
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for keyed data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error     // Create inserts a new model and assigns its identifier
	Get(ctx context.Context, id string) (T, error) // Get retrieves a model by its identifier
	Delete(ctx context.Context, id string) error   // Delete removes a model by its identifier
}

// UserStore persists [User] accounts.
type UserStore interface {
	Repository[*User]
	// GetByEmail looks up an account by its normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ArtistStore persists [Artist] records.
type ArtistStore interface {
	Repository[*Artist]
	// Search returns artists whose name contains q (case-insensitive), sorted by name. An empty q lists all.
	Search(ctx context.Context, q string) ([]*Artist, error)
	// GetByName returns the artist with exactly this name.
	GetByName(ctx context.Context, name string) (*Artist, error)
}

// SongStore persists [Song] records.
type SongStore interface {
	Repository[*Song]
	// Search returns one page of songs matching q, newest first.
	Search(ctx context.Context, q SongQuery) (Page[*Song], error)
	// GetBySongID looks a song up by its external id.
	GetBySongID(ctx context.Context, songID string) (*Song, error)
	// IDs lists every song's catalog identifier.
	IDs(ctx context.Context) ([]string, error)
}

// PlaylistStore persists [Playlist] records and their song membership.
//
// Playlists returned by Get, GetByName and ListByUser carry their songs.
type PlaylistStore interface {
	Repository[*Playlist]
	ListByUser(ctx context.Context, userID string) ([]*Playlist, error)
	GetByName(ctx context.Context, userID, name string) (*Playlist, error)
	Rename(ctx context.Context, id, name string) (*Playlist, error)
	// AddSong is idempotent: adding a song that is already a member succeeds without duplicating it.
	AddSong(ctx context.Context, playlistID, songID string) error
	RemoveSong(ctx context.Context, playlistID, songID string) error
}

// Store aggregates the per-collection stores behind a single backend.
type Store interface {
	Users() UserStore
	Artists() ArtistStore
	Songs() SongStore
	Playlists() PlaylistStore
	Close() error
}
