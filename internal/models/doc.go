// Package models defines domain entities and persistence interfaces for the melodex catalog.
//
// The package contains two categories of types:
//
// 1. Catalog entities, shared by the API, its stores and the client:
//   - [Song] : Track metadata plus the external song id that names the audio file
//   - [Artist] : Performer referenced by songs
//   - [Playlist] : Named, user-owned set of songs; the one named [DefaultPlaylistName] holds liked songs
//   - [User] : Account with a password hash that is never serialized
//   - [Page] : One page of a paginated listing
//
// 2. Persistence interfaces implemented by the SQLite repositories and the MongoDB document store:
//   - [Repository] : Create, Get and Delete keyed by identifier
//   - [UserStore], [ArtistStore], [SongStore], [PlaylistStore] : per-collection queries
//   - [Store] : the aggregate handed to the catalog service
//
// Derived values (track counts, aggregate duration, the "liked" flag) are computed from a playlist's song set and never stored.
package models
