// Package repositories implements SQLite persistence for the catalog.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Users, artists and songs are soft deleted via deleted_at timestamps and excluded from queries by default.
// Playlists are hard deleted so their membership rows cascade.
//
// Key Implementations:
//   - [UserRepository] : User account persistence with email-based lookups
//   - [ArtistRepository] : Artist records with case-insensitive name search
//   - [SongRepository] : Song metadata with paginated title search
//   - [PlaylistRepository] : Playlists and the playlist_songs membership table
//   - [Store] : [models.Store] over a single database handle
//   - [SongCacheAdapter] : duplicate-skipping song inserts for catalog imports
//
// Sequence numbers provide stable, human-readable ordering (e.g., song #42, playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
