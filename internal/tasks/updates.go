package tasks

import (
	"fmt"

	"github.com/desertthunder/melodex/internal/formatter"
	"github.com/desertthunder/melodex/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ParseCatalog Phase = iota
	ImportSongs
	SampleSongs
	SeedPlaylist
	FetchPlaylists
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ParseCatalog:
		return "parse_catalog"
	case ImportSongs:
		return "import_songs"
	case SampleSongs:
		return "sample_songs"
	case SeedPlaylist:
		return "seed_playlist"
	case FetchPlaylists:
		return "fetch_playlists"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func parsedCatalogUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Parsed %d catalog rows", count),
	}
}

func importedSongUpdate(step, total int, rec formatter.CatalogRecord, created bool) ProgressUpdate {
	status := "added"
	if !created {
		status = "exists"
	}
	return ProgressUpdate{
		Phase:   ImportSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s (%s)", step, total, rec.Artist, rec.Title, status),
		Data:    rec,
	}
}

func importFailedUpdate(step, total int, rec formatter.CatalogRecord, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ line %d (%s): %v", step, total, rec.Line, rec.ID, err),
		Data:    rec,
	}
}

func sampledSongsUpdate(picked, available int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleSongs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sampled %d of %d songs", picked, available),
	}
}

func seedingPlaylistUpdate(step, total int, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SeedPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding to %s...", step, total, pl.Name),
		Data:    pl,
	}
}

func fetchPlaylistsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d playlists...", total),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
