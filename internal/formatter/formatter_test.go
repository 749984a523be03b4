package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	th "github.com/desertthunder/melodex/internal/testing"
)

func testExport() *Export {
	return &Export{
		Playlist: models.Playlist{
			ID:     "pl1",
			Name:   "Road Trip",
			UserID: "u1",
			Songs: []models.Song{
				{
					ID:          "s1",
					SongID:      "0001",
					Title:       "Song One",
					ArtistID:    "a1",
					Album:       "Album One",
					DurationSec: 180,
					ReleaseYear: "2001",
					Cover:       "http://img/1.jpg",
					AudioURL:    "http://audio/0001.mp3",
				},
				{
					ID:          "s2",
					SongID:      "0002",
					Title:       "Song, Two",
					ArtistID:    "a2",
					DurationSec: 240.5,
				},
			},
		},
		Artists: map[string]string{"a1": "Artist One"},
	}
}

func TestReadCatalogCSV(t *testing.T) {
	t.Run("maps columns by header", func(t *testing.T) {
		input := "title,id,duration,release_year,artist,extra\n" +
			"Intro,0001,125.5,1999.0,The Band,x\n" +
			"Outro,0002,NaN,,The Band,y\n" +
			"Short,0003\n"

		records, err := ReadCatalogCSV(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadCatalogCSV failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}

		first := records[0]
		if first.ID != "0001" || first.Title != "Intro" || first.Artist != "The Band" {
			t.Errorf("unexpected first record %+v", first)
		}
		if first.Duration != 125.5 || first.ReleaseYear != "1999" {
			t.Errorf("expected duration 125.5 and year 1999, got %v and %q", first.Duration, first.ReleaseYear)
		}
		if first.Line != 2 {
			t.Errorf("expected line 2, got %d", first.Line)
		}
		if records[1].Duration != 0 {
			t.Errorf("NaN duration should become 0, got %v", records[1].Duration)
		}
		if records[2].Artist != "" || records[2].Title != "Short" {
			t.Errorf("short rows should leave missing fields empty, got %+v", records[2])
		}
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		records, err := ReadCatalogCSV(strings.NewReader("\ufeffid,title\n1,One\n"))
		if err != nil {
			t.Fatalf("ReadCatalogCSV failed: %v", err)
		}
		if len(records) != 1 || records[0].ID != "1" {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tc := []struct {
			name  string
			input string
		}{
			{name: "empty file", input: ""},
			{name: "missing id column", input: "title,artist\nOne,Two\n"},
			{name: "missing title column", input: "id,artist\n1,Two\n"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ReadCatalogCSV(strings.NewReader(tt.input))
				if !errors.Is(err, shared.ErrMalformedPayload) {
					t.Errorf("expected ErrMalformedPayload, got %v", err)
				}
			})
		}
	})
}

func TestExporters(t *testing.T) {
	export := testExport()

	t.Run("ExportToCSV round trips through ReadCatalogCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "id,audio_url,title,artist,album,duration,release_year,cover\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Song, Two"`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}

		records, err := ReadCatalogCSV(strings.NewReader(output))
		if err != nil {
			t.Fatalf("ReadCatalogCSV failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != "0001" || records[0].Artist != "Artist One" || records[0].Cover != "http://img/1.jpg" {
			t.Errorf("unexpected first record %+v", records[0])
		}
		if records[1].Title != "Song, Two" || records[1].Duration != 240.5 {
			t.Errorf("unexpected second record %+v", records[1])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(export, "")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Road Trip",
			"**Tracks**: 2",
			"**Duration**: 7:00 (0 h)",
			"1. Artist One - Song One (Album One) [3:00]",
			"2. Unknown Artist - Song, Two [4:01]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
		if strings.Contains(output, "![Cover]") {
			t.Error("Markdown should not reference a cover without an image")
		}

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(export, "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover image reference")
			}
		})

		t.Run("marks liked songs", func(t *testing.T) {
			liked := &Export{Playlist: models.Playlist{ID: "d", Name: models.DefaultPlaylistName}}
			data, _ := ExportToMarkdown(liked, "")
			if !strings.Contains(string(data), "_Liked songs_") {
				t.Errorf("expected liked marker, got: %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Playlist: Road Trip", "Tracks: 2", "1. Artist One - Song One", "2. Unknown Artist - Song, Two"} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(export.Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var meta PlaylistMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if meta.ID != "pl1" || meta.TrackCount != 2 || meta.TotalDuration != 420.5 || meta.IsDefault {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if strings.Contains(string(data), "Song One") {
			t.Error("metadata should not include songs")
		}
	})

	if export.CoverURL() != "http://img/1.jpg" {
		t.Errorf("expected first cover, got %q", export.CoverURL())
	}
}

func TestDownloadImage(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(ctx, nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpegbytes"))
		}))
		defer srv.Close()

		data, err := DownloadImage(ctx, srv.Client(), srv.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "jpegbytes" {
			t.Errorf("unexpected body %q", data)
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(ctx, srv.Client(), srv.URL); err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("RequestFailure", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("boom"))}
		if _, err := DownloadImage(ctx, client, "http://example.invalid/x.jpg"); err == nil {
			t.Error("expected transport error")
		}
	})
}

func TestWriters(t *testing.T) {
	export := testExport()

	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "pl1")
		result, err := WriteCSVExport(export, base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		if result.TracksFile != base+"_tracks.csv" || result.MetadataFile != base+"_metadata.json" {
			t.Errorf("unexpected paths %+v", result)
		}
		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)

		if !strings.Contains(th.MustReadFile(t, result.TracksFile), "0001") {
			t.Error("CSV missing song data")
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("without image", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "md")
			result, err := WriteMarkdownExport(export, dir, nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 1 || result.CoverImage != "" {
				t.Errorf("expected only README.md, got %+v", result)
			}
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))
		})

		t.Run("with image", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "md")
			result, err := WriteMarkdownExport(export, dir, []byte("img"))
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 2 {
				t.Errorf("expected cover and README, got %v", result.Files)
			}
			if th.MustReadFile(t, result.CoverImage) != "img" {
				t.Error("cover image content mismatch")
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Error("README should reference the cover")
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		got, err := WriteTextExport(export, path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Playlist: Road Trip") {
			t.Error("text export missing header")
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		if _, err := WriteJSONExport(export, path); err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		var pl models.Playlist
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &pl); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if pl.TrackCount() != 2 {
			t.Errorf("expected 2 songs, got %d", pl.TrackCount())
		}
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export_manifest.json")
		m := &Manifest{Format: "csv", Total: 1, Successful: 1, Playlists: []ManifestEntry{{PlaylistID: "pl1", Success: true}}}
		if err := WriteManifest(m, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), `"playlist_id": "pl1"`) {
			t.Error("manifest missing playlist entry")
		}
	})

	t.Run("write failure", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope", "out.txt")
		if _, err := WriteTextExport(export, missing); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
