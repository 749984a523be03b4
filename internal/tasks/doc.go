// Package tasks runs the long catalog jobs behind the CLI with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes three jobs:
//
//  1. [Engine.ImportSongs] : Load a catalog CSV (id, audio_url, title, artist, album, duration, release_year, cover)
//     - Resolves each artist by name, creating it on first sight
//     - Inserts songs through a [SongCacher]; songs whose id already exists are skipped
//     - Runs rows through a rate-limited worker pool
//
//  2. [Engine.SeedPlaylist] : Fill a user's default ("songs") playlist
//     - Draws a deterministic sample of catalog songs from a fixed seed
//     - Creates the default playlist when the user has none
//
//  3. [Engine.BulkExport] : Write playlists to disk as JSON, CSV, Markdown or text
//     - CSV output uses the import layout so exports can be re-imported
//     - A manifest summarizes successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
