// package tasks implements catalog import, playlist seeding and playlist export jobs.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/formatter"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/repositories"
	"github.com/desertthunder/melodex/internal/shared"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultSeedSize is the number of songs placed in a seeded playlist.
	DefaultSeedSize = 50
	// DefaultSeed makes seeded playlists reproducible across runs.
	DefaultSeed uint64 = 42

	defaultImportWorkers = 4
	maxWorkers           = 10
)

// SongCacher persists imported songs, skipping ones already in the catalog.
type SongCacher interface {
	CacheSong(ctx context.Context, song *models.Song) (bool, error)
}

// RowError describes a catalog row that could not be imported.
type RowError struct {
	Line   int
	SongID string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.SongID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ImportOpts configures [Engine.ImportSongs].
type ImportOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Rows per second; zero means unlimited
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Total   int        // Rows read
	Created int        // New songs
	Skipped int        // Rows whose song id was already present
	Invalid int        // Rows rejected by validation
	Failed  int        // Rows that hit a storage error
	Artists int        // Distinct artists referenced by imported rows
	Errors  []RowError // Invalid and failed rows, ordered by line
}

// SeedOpts configures [Engine.SeedPlaylist].
type SeedOpts struct {
	Size int    // Songs to add (default: 50)
	Seed uint64 // Sample seed (default: 42)
}

// SeedResult reports the outcome of [Engine.SeedPlaylist].
type SeedResult struct {
	Playlist  *models.Playlist
	Available int
	Added     int
}

// Engine runs catalog jobs against a [catalog.Service].
type Engine struct {
	catalog *catalog.Service
	songs   SongCacher
	logger  *log.Logger

	artists sync.Map // artist name to id
	group   singleflight.Group
}

// NewEngine creates an Engine. A nil cacher inserts through the service's song store.
func NewEngine(svc *catalog.Service, songs SongCacher, logger *log.Logger) *Engine {
	if songs == nil {
		songs = repositories.NewSongCacheAdapter(svc.Store().Songs())
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{catalog: svc, songs: songs, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type importOutcome struct {
	rec      formatter.CatalogRecord
	artistID string
	created  bool
	err      error
}

// ImportSongs reads a catalog CSV and imports every row.
func (e *Engine) ImportSongs(ctx context.Context, prog chan<- ProgressUpdate, r io.Reader, opts ImportOpts) (*ImportResult, error) {
	records, err := formatter.ReadCatalogCSV(r)
	if err != nil {
		return nil, err
	}
	e.sendProgress(prog, parsedCatalogUpdate(len(records)))
	return e.ImportRecords(ctx, prog, records, opts)
}

// ImportRecords imports parsed catalog rows with a rate-limited worker pool.
//
// Row failures are collected in the result; the returned error is reserved for cancellation.
func (e *Engine) ImportRecords(ctx context.Context, prog chan<- ProgressUpdate, records []formatter.CatalogRecord, opts ImportOpts) (*ImportResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultImportWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := &ImportResult{Total: len(records)}

	// Repeated ids within one file would race past the store's existence check, so only the first row is queued.
	queue := make([]formatter.CatalogRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup && rec.ID != "" {
			result.Skipped++
			continue
		}
		seen[rec.ID] = struct{}{}
		queue = append(queue, rec)
	}

	jobs := make(chan formatter.CatalogRecord)
	results := make(chan importOutcome, len(queue))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.importWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, rec := range queue {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	artists := make(map[string]struct{})
	completed := result.Skipped
	for out := range results {
		completed++
		switch {
		case out.err == nil && out.created:
			result.Created++
		case out.err == nil:
			result.Skipped++
		case errors.Is(out.err, shared.ErrInvalidInput):
			result.Invalid++
		default:
			result.Failed++
		}

		if out.err != nil {
			result.Errors = append(result.Errors, RowError{Line: out.rec.Line, SongID: out.rec.ID, Err: out.err})
			e.sendProgress(prog, importFailedUpdate(completed, len(records), out.rec, out.err))
			continue
		}
		if out.artistID != "" {
			artists[out.artistID] = struct{}{}
		}
		e.sendProgress(prog, importedSongUpdate(completed, len(records), out.rec, out.created))
	}
	result.Artists = len(artists)
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Line < result.Errors[j].Line })

	e.logger.Info("catalog import finished",
		"total", result.Total, "created", result.Created, "skipped", result.Skipped,
		"invalid", result.Invalid, "failed", result.Failed)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// importWorker is a worker goroutine that imports rows from the jobs channel.
func (e *Engine) importWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan formatter.CatalogRecord, results chan<- importOutcome) {
	defer wg.Done()

	for rec := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- e.importOne(ctx, rec)
	}
}

func (e *Engine) importOne(ctx context.Context, rec formatter.CatalogRecord) importOutcome {
	out := importOutcome{rec: rec}
	if rec.ID == "" || rec.Title == "" {
		out.err = fmt.Errorf("%w: id and title required", shared.ErrInvalidInput)
		return out
	}

	artistID, err := e.resolveArtist(ctx, rec.Artist)
	if err != nil {
		out.err = err
		return out
	}
	out.artistID = artistID

	created, err := e.songs.CacheSong(ctx, rec.Song(artistID))
	if err != nil {
		out.err = err
		return out
	}
	out.created = created
	return out
}

// resolveArtist returns the id of the named artist, creating it on first use.
// Concurrent lookups of the same name share one store round trip.
func (e *Engine) resolveArtist(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	if id, ok := e.artists.Load(name); ok {
		return id.(string), nil
	}

	v, err, _ := e.group.Do(name, func() (any, error) {
		artist, err := e.catalog.ArtistByName(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve artist %q: %w", name, err)
		}
		e.artists.Store(name, artist.ID)
		return artist.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SampleIDs picks up to n ids using a seeded shuffle; the same ids, n and seed always give the same sample.
// When there are no more than n ids, all of them are returned in their original order.
func SampleIDs(ids []string, n int, seed uint64) []string {
	picked := append([]string(nil), ids...)
	if n <= 0 || len(picked) <= n {
		return picked
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:n]
}

// SeedPlaylist fills the user's default playlist with a deterministic sample of catalog songs.
func (e *Engine) SeedPlaylist(ctx context.Context, prog chan<- ProgressUpdate, userID string, opts SeedOpts) (*SeedResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSeedSize
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}

	if _, err := e.catalog.Store().Users().Get(ctx, userID); err != nil {
		return nil, err
	}

	ids, err := e.catalog.Store().Songs().IDs(ctx)
	if err != nil {
		return nil, err
	}
	picked := SampleIDs(ids, opts.Size, opts.Seed)
	e.sendProgress(prog, sampledSongsUpdate(len(picked), len(ids)))

	playlist, err := e.catalog.EnsureDefaultPlaylist(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Available: len(ids)}
	for i, id := range picked {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(prog, seedingPlaylistUpdate(i+1, len(picked), playlist))
		if err := e.catalog.AddSong(ctx, playlist.ID, id); err != nil {
			return result, fmt.Errorf("failed to add song %s: %w", id, err)
		}
		result.Added++
	}

	result.Playlist, err = e.catalog.Playlist(ctx, playlist.ID)
	if err != nil {
		return result, err
	}
	e.logger.Info("seeded playlist", "user", userID, "playlist", playlist.ID, "songs", result.Added)
	return result, nil
}

// PlaylistIDs lists the ids of a user's playlists, newest first.
func (e *Engine) PlaylistIDs(ctx context.Context, prog chan<- ProgressUpdate, userID string) ([]string, error) {
	playlists, err := e.catalog.UserPlaylists(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.sendProgress(prog, fetchPlaylistsUpdate(1, len(playlists)))

	ids := make([]string, 0, len(playlists))
	for _, pl := range playlists {
		ids = append(ids, pl.ID)
	}
	return ids, nil
}

// exportFor loads a playlist and the names of its artists.
func (e *Engine) exportFor(ctx context.Context, playlistID string) (*formatter.Export, error) {
	pl, err := e.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	artists := make(map[string]string)
	for _, s := range pl.Songs {
		if s.ArtistID == "" {
			continue
		}
		if _, seen := artists[s.ArtistID]; seen {
			continue
		}
		artist, err := e.catalog.Store().Artists().Get(ctx, s.ArtistID)
		if err != nil {
			e.logger.Debug("artist lookup failed", "artist", s.ArtistID, "error", err)
			artists[s.ArtistID] = ""
			continue
		}
		artists[s.ArtistID] = artist.Name
	}
	return &formatter.Export{Playlist: *pl, Artists: artists}, nil
}
