// package formatter reads and writes catalog data in the interchange formats used by the CLI (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

// CatalogHeader is the column layout shared by catalog imports and CSV playlist exports.
var CatalogHeader = []string{"id", "audio_url", "title", "artist", "album", "duration", "release_year", "cover"}

// CatalogRecord is one row of a catalog CSV file.
type CatalogRecord struct {
	Line        int // 1-based line in the source file; zero for generated records
	ID          string
	AudioURL    string
	Title       string
	Artist      string
	Album       string
	Duration    float64
	ReleaseYear string
	Cover       string
}

// Song converts the record to a catalog song. The artist is resolved separately.
func (r CatalogRecord) Song(artistID string) *models.Song {
	return &models.Song{
		SongID:      r.ID,
		Title:       r.Title,
		ArtistID:    artistID,
		Album:       r.Album,
		DurationSec: r.Duration,
		ReleaseYear: r.ReleaseYear,
		Cover:       r.Cover,
		AudioURL:    r.AudioURL,
	}
}

func (r CatalogRecord) fields() []string {
	return []string{
		r.ID,
		r.AudioURL,
		r.Title,
		r.Artist,
		r.Album,
		strconv.FormatFloat(r.Duration, 'f', -1, 64),
		r.ReleaseYear,
		r.Cover,
	}
}

// ReadCatalogCSV parses a catalog CSV. Columns are matched by header name, so extra columns and any column order are accepted.
//
// The id and title columns are required. Unparseable durations become zero and a year written as a float ("1999.0") is truncated.
func ReadCatalogCSV(r io.Reader) ([]CatalogRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty catalog file", shared.ErrMalformedPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"id", "title"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", shared.ErrMalformedPayload, required)
		}
	}

	var records []CatalogRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		get := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		records = append(records, CatalogRecord{
			Line:        line,
			ID:          get("id"),
			AudioURL:    get("audio_url"),
			Title:       get("title"),
			Artist:      get("artist"),
			Album:       get("album"),
			Duration:    parseDuration(get("duration")),
			ReleaseYear: strings.TrimSuffix(get("release_year"), ".0"),
			Cover:       get("cover"),
		})
	}
	return records, nil
}

func parseDuration(s string) float64 {
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return d
}

// WriteCatalogCSV writes records with [CatalogHeader].
func WriteCatalogCSV(w io.Writer, records []CatalogRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CatalogHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(rec.fields()); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// Export is a playlist together with the names of the artists its songs reference.
type Export struct {
	Playlist models.Playlist
	Artists  map[string]string // artist id to name
}

// ArtistName returns the display name for a song's artist, or an empty string.
func (e *Export) ArtistName(s models.Song) string {
	if e.Artists == nil {
		return ""
	}
	return e.Artists[s.ArtistID]
}

// Records converts the playlist songs to catalog rows, in playlist order.
func (e *Export) Records() []CatalogRecord {
	records := make([]CatalogRecord, 0, len(e.Playlist.Songs))
	for _, s := range e.Playlist.Songs {
		records = append(records, CatalogRecord{
			ID:          s.SongID,
			AudioURL:    s.AudioURL,
			Title:       s.Title,
			Artist:      e.ArtistName(s),
			Album:       s.Album,
			Duration:    s.DurationSec,
			ReleaseYear: s.ReleaseYear,
			Cover:       s.Cover,
		})
	}
	return records
}

// CoverURL returns the first song cover in the playlist.
func (e *Export) CoverURL() string {
	for _, s := range e.Playlist.Songs {
		if s.Cover != "" {
			return s.Cover
		}
	}
	return ""
}

// ExportToCSV renders the playlist in the catalog import layout, so an export can be fed back to an import.
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCatalogCSV(&buf, export.Records()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the playlist as Markdown with an optional cover image
func ExportToMarkdown(export *Export, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	pl := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", pl.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if pl.IsDefault() {
		buf.WriteString("_Liked songs_\n\n")
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", pl.TrackCount())
	fmt.Fprintf(&buf, "**Duration**: %s (%d h)\n\n", shared.FormatDuration(int(pl.TotalDuration())), pl.TotalHours())

	buf.WriteString("## Tracks\n\n")
	for i, s := range pl.Songs {
		albumPart := ""
		if s.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", s.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, orUnknown(export.ArtistName(s)), s.Title, albumPart, shared.FormatDuration(s.Seconds()))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the playlist as a numbered plain-text list
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n", export.Playlist.TrackCount())
	fmt.Fprintf(&buf, "Duration: %s\n\n", shared.FormatDuration(int(export.Playlist.TotalDuration())))

	for i, s := range export.Playlist.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, orUnknown(export.ArtistName(s)), s.Title)
	}

	return buf.Bytes(), nil
}

func orUnknown(name string) string {
	if name == "" {
		return "Unknown Artist"
	}
	return name
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// PlaylistMetadata is the JSON summary written next to CSV exports.
type PlaylistMetadata struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	IsDefault     bool      `json:"is_default"`
	TrackCount    int       `json:"track_count"`
	TotalDuration float64   `json:"total_duration_sec"`
	TotalHours    int       `json:"total_hours"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without songs)
func ToMetadataJSON(pl models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(PlaylistMetadata{
		ID:            pl.ID,
		Name:          pl.Name,
		UserID:        pl.UserID,
		CreatedAt:     pl.CreatedAt,
		IsDefault:     pl.IsDefault(),
		TrackCount:    pl.TrackCount(),
		TotalDuration: pl.TotalDuration(),
		TotalHours:    pl.TotalHours(),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *Export, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// When image is non-nil it is saved as cover.jpg and referenced from README.md.
func WriteMarkdownExport(export *Export, outputDir string, image []byte) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(image) > 0 {
		coverImagePath := filepath.Join(outputDir, "cover.jpg")
		if err := os.WriteFile(coverImagePath, image, 0644); err != nil {
			return nil, fmt.Errorf("failed to save cover image: %w", err)
		}
		coverImageFilename = "cover.jpg"
		result.CoverImage = coverImagePath
		result.Files = append(result.Files, coverImagePath)
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *Export, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the playlist, songs included, as indented JSON.
func WriteJSONExport(export *Export, path string) (string, error) {
	if path == "" {
		path = export.Playlist.ID + ".json"
	}

	data, err := shared.MarshalJSON(export.Playlist, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// ManifestEntry records the outcome for one playlist of a bulk export.
type ManifestEntry struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	Format     string          `json:"format"`
	ExportedAt time.Time       `json:"exported_at"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Playlists  []ManifestEntry `json:"playlists"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
