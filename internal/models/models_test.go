package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/melodex/internal/shared"
)

func TestPlaylist(t *testing.T) {
	songs := []Song{
		{ID: "a", SongID: "1", Title: "One", DurationSec: 125},
		{ID: "b", SongID: "2", Title: "Two", DurationSec: 0},
		{ID: "c", SongID: "3", Title: "Three", DurationSec: 300},
	}
	pl := Playlist{ID: "p1", Name: DefaultPlaylistName, UserID: "u1", Songs: songs}

	t.Run("derived totals", func(t *testing.T) {
		if pl.TrackCount() != 3 {
			t.Errorf("expected 3 tracks, got %d", pl.TrackCount())
		}
		if pl.TotalDuration() != 425 {
			t.Errorf("expected 425 seconds, got %v", pl.TotalDuration())
		}
		if pl.TotalHours() != 0 {
			t.Errorf("expected 0 whole hours, got %d", pl.TotalHours())
		}
	})

	t.Run("WithSong appends once", func(t *testing.T) {
		next := pl.WithSong(Song{ID: "d", SongID: "4", Title: "Four", DurationSec: 3600})
		if next.TrackCount() != 4 || !next.Contains("d") {
			t.Fatalf("expected song d to be added, got %+v", next.Songs)
		}
		if pl.Contains("d") {
			t.Error("original playlist must not change")
		}
		if next.TotalHours() != 1 {
			t.Errorf("expected 1 whole hour, got %d", next.TotalHours())
		}

		again := next.WithSong(Song{ID: "d"})
		if again.TrackCount() != 4 {
			t.Errorf("adding an existing song should not duplicate it, got %d", again.TrackCount())
		}
	})

	t.Run("WithoutSong filters", func(t *testing.T) {
		next := pl.WithoutSong("b")
		if next.Contains("b") || next.TrackCount() != 2 {
			t.Errorf("expected b removed, got %+v", next.Songs)
		}
		if !pl.Contains("b") {
			t.Error("original playlist must not change")
		}
		if pl.WithoutSong("zzz").TrackCount() != 3 {
			t.Error("removing an absent song should be a no-op")
		}
	})

	t.Run("IsDefault", func(t *testing.T) {
		if !pl.IsDefault() {
			t.Error("playlist named songs should be the default")
		}
		other := Playlist{Name: "road trip"}
		if other.IsDefault() {
			t.Error("other playlists are not the default")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := (&Playlist{UserID: "u"}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing name, got %v", err)
		}
		if err := (&Playlist{Name: "x"}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing user, got %v", err)
		}
	})
}

func TestUser(t *testing.T) {
	t.Run("accepts id or _id", func(t *testing.T) {
		tc := []struct {
			name string
			body string
			want string
		}{
			{name: "underscore id", body: `{"_id":"abc","email":"a@b.co","username":"ann"}`, want: "abc"},
			{name: "plain id", body: `{"id":"xyz","email":"a@b.co","username":"ann"}`, want: "xyz"},
			{name: "both prefers _id", body: `{"_id":"abc","id":"xyz"}`, want: "abc"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				var u User
				if err := json.Unmarshal([]byte(tt.body), &u); err != nil {
					t.Fatalf("unmarshal failed: %v", err)
				}
				if u.ID != tt.want {
					t.Errorf("expected id %q, got %q", tt.want, u.ID)
				}
			})
		}
	})

	t.Run("never serializes the password hash", func(t *testing.T) {
		data, err := json.Marshal(User{ID: "1", Email: "a@b.co", PasswordHash: []byte("secret")})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for k := range m {
			if k != "_id" && k != "username" && k != "email" {
				t.Errorf("unexpected key %q in %s", k, data)
			}
		}
	})

	t.Run("ValidateEmail", func(t *testing.T) {
		for _, email := range []string{"", "nope", "Ann <ann@example.com>"} {
			if err := ValidateEmail(email); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidInput", email, err)
			}
		}
		if err := ValidateEmail("ann@example.com"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	if NormalizeEmail("  Ann@Example.COM ") != "ann@example.com" {
		t.Error("NormalizeEmail should trim and lowercase")
	}
}

func TestClampPaging(t *testing.T) {
	tc := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{-3, -1, 1, 1},
		{2, 500, 2, MaxPageSize},
		{4, 10, 4, 10},
	}

	for _, tt := range tc {
		page, size := ClampPaging(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("ClampPaging(%d, %d) = %d, %d; want %d, %d", tt.page, tt.size, page, size, tt.wantPage, tt.wantSize)
		}
	}

	if Offset(3, 25) != 50 {
		t.Errorf("expected offset 50, got %d", Offset(3, 25))
	}
}

func TestSong(t *testing.T) {
	s := &Song{SongID: "0042", Title: "Song", DurationSec: 199.6}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Seconds() != 200 {
		t.Errorf("expected 200 seconds, got %d", s.Seconds())
	}
	if s.FileName() != "0042.mp3" {
		t.Errorf("unexpected file name %q", s.FileName())
	}
	if err := (&Song{Title: "x"}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
