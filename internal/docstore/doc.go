// Package docstore implements [models.Store] on MongoDB.
//
// Collections mirror the catalog: users, artists, songs, playlists and the playlist_songs join collection.
// Identifiers are ObjectIDs rendered as hex strings at the model boundary.
// [Connect] creates the indexes the catalog relies on, including the unique username, email and membership indexes.
package docstore
