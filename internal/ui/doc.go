// Package ui implements the interactive terminal player using bubbletea's Elm architecture.
//
// The TUI is organised in tabbed sections:
//  1. [SearchSection] : Debounced title search over the catalog
//  2. [LatestSection] : Paged list of the newest songs
//  3. [ArtistsSection] : Artists, drilling into their songs
//  4. [PlaylistsSection] : The signed-in user's playlists and their tracks
//  5. [HistorySection] : Recently played songs with resume positions
//
// The [Model] never touches playback state directly. It issues commands against a [Player]
// (normally a [player.Controller]) and renders the snapshots the controller publishes through
// its subscription channel, so the player bar always reflects the controller's view.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
