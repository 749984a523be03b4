package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/repositories"
	"github.com/desertthunder/melodex/internal/server"
	"github.com/desertthunder/melodex/internal/shared"
	tu "github.com/desertthunder/melodex/internal/testing"
	"golang.org/x/crypto/bcrypt"
)

func cannedClient(status int, body string) (*CatalogClient, *tu.MockRoundTripper) {
	rt := tu.NewMockRoundTripper(tu.JSONResponse(status, body), nil)
	return NewCatalogClient("http://api.test", "http://stream.test/", &http.Client{Transport: rt}), rt
}

func TestCatalogClientErrors(t *testing.T) {
	t.Run("404 matches ErrNotFound", func(t *testing.T) {
		c, _ := cannedClient(http.StatusNotFound, `{"error": "playlist not found"}`)
		_, err := c.DefaultPlaylist(context.Background(), "u1")

		if !errors.Is(err, shared.ErrAPIRequest) || !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected API request + not found, got %v", err)
		}
		if StatusCode(err) != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", StatusCode(err))
		}
	})

	t.Run("server message is kept", func(t *testing.T) {
		c, _ := cannedClient(http.StatusConflict, `{"error": "username or email taken"}`)
		_, err := c.Register(context.Background(), "a", "a@example.com", "pw")

		if !errors.Is(err, shared.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Message != "username or email taken" {
			t.Errorf("expected server message, got %v", err)
		}
	})

	t.Run("500 without body", func(t *testing.T) {
		c, _ := cannedClient(http.StatusInternalServerError, ``)
		err := c.Health(context.Background())

		if !errors.Is(err, shared.ErrAPIRequest) || errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected bare API request error, got %v", err)
		}
	})

	t.Run("wrong shape is malformed", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{"items": []}`)
		_, err := c.UserPlaylists(context.Background(), "u1")

		if !errors.Is(err, shared.ErrMalformedPayload) {
			t.Errorf("expected malformed payload, got %v", err)
		}
	})

	t.Run("login without user is malformed", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{"token": "x"}`)
		_, err := c.Login(context.Background(), "a@example.com", "pw")

		if !errors.Is(err, shared.ErrMalformedPayload) {
			t.Errorf("expected malformed payload, got %v", err)
		}
	})

	t.Run("ok flag required", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{}`)
		if err := c.AddSong(context.Background(), "p1", "s1"); !errors.Is(err, shared.ErrMalformedPayload) {
			t.Errorf("expected malformed payload, got %v", err)
		}
	})
}

func TestCatalogClientDecoding(t *testing.T) {
	t.Run("user id alias", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{"user": {"id": "u9", "username": "ada", "email": "ada@example.com"}}`)
		user, err := c.Login(context.Background(), "ada@example.com", "pw")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "u9" {
			t.Errorf("expected id from alias, got %q", user.ID)
		}
	})

	t.Run("NaN duration becomes zero", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{"_id": "s1", "song_id": "0001", "title": "One", "duration_sec": NaN}`)
		song, err := c.Song(context.Background(), "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if song.DurationSec != 0 || song.Title != "One" {
			t.Errorf("unexpected song %+v", song)
		}
	})

	t.Run("query parameters", func(t *testing.T) {
		c, rt := cannedClient(http.StatusOK, `{"items": null, "page": 2, "size": 10, "total": 0}`)
		page, err := c.Songs(context.Background(), models.SongQuery{Q: "blue", Page: 2, Size: 10})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Items == nil {
			t.Error("expected empty items slice")
		}

		req := rt.Requests()[0]
		if req.URL.Path != "/api/songs" || req.URL.Query().Get("q") != "blue" || req.URL.Query().Get("page") != "2" {
			t.Errorf("unexpected request %s", req.URL)
		}
		if req.URL.Query().Has("song_id") {
			t.Errorf("empty filters must be omitted: %s", req.URL)
		}
	})

	t.Run("stream url", func(t *testing.T) {
		c, _ := cannedClient(http.StatusOK, `{}`)
		got := c.StreamURL(&models.Song{SongID: "0042"})
		if got != "http://stream.test/stream/0042.mp3" {
			t.Errorf("unexpected stream url %q", got)
		}
	})
}

func TestCatalogClientRoundTrip(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	store := repositories.NewStore(db)
	defer store.Close()

	logger := shared.NewLogger(io.Discard)
	svc := catalog.NewService(store, logger, catalog.WithHashCost(bcrypt.MinCost))
	api := httptest.NewServer(server.NewCatalogApp(svc, shared.ServerConfig{}, server.AppOptions{}, logger))
	defer api.Close()

	ctx := context.Background()
	song := &models.Song{SongID: "0001", Title: "Opening", DurationSec: 125}
	if err := store.Songs().Create(ctx, song); err != nil {
		t.Fatalf("failed to seed song: %v", err)
	}

	c := NewCatalogClient(api.URL, "", nil)

	if _, err := c.Register(ctx, "ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	user, err := c.Login(ctx, "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := c.Login(ctx, "ada@example.com", "bad"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}

	liked, err := c.DefaultPlaylist(ctx, user.ID)
	if err != nil {
		t.Fatalf("default playlist failed: %v", err)
	}
	if err := c.AddSong(ctx, liked.ID, song.ID); err != nil {
		t.Fatalf("add song failed: %v", err)
	}

	playlists, err := c.UserPlaylists(ctx, user.ID)
	if err != nil {
		t.Fatalf("user playlists failed: %v", err)
	}
	if len(playlists) != 1 || !playlists[0].Contains(song.ID) {
		t.Errorf("expected liked song in default playlist, got %+v", playlists)
	}

	if err := c.RemoveSong(ctx, liked.ID, song.ID); err != nil {
		t.Fatalf("remove song failed: %v", err)
	}
	got, err := c.Song(ctx, song.ID)
	if err != nil || got.SongID != "0001" {
		t.Errorf("song lookup failed: %v %+v", err, got)
	}
	if _, err := c.Song(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
