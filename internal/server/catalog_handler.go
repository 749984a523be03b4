package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/models"
)

// CatalogHandler serves the JSON catalog API.
//
// List endpoints keep their historical shapes: songs are paged ({items, page, size, total})
// while artists and user playlists are bare arrays.
type CatalogHandler struct {
	svc     *catalog.Service
	logger  *log.Logger
	limiter *RateLimiter
	mux     *http.ServeMux
	routes  []string
}

// NewCatalogHandler creates the API handler. A nil limiter disables rate limiting on account endpoints.
func NewCatalogHandler(svc *catalog.Service, logger *log.Logger, limiter *RateLimiter) *CatalogHandler {
	h := &CatalogHandler{svc: svc, logger: logger, limiter: limiter, mux: http.NewServeMux()}

	h.handle("POST /api/users", h.limited(h.CreateUser))
	h.handle("POST /api/login", h.limited(h.Login))
	h.handle("POST /api/artists", h.CreateArtist)
	h.handle("GET /api/artists", h.ListArtists)
	h.handle("GET /api/songs", h.ListSongs)
	h.handle("GET /api/songs/latest", h.LatestSongs)
	h.handle("GET /api/songs/{id}", h.GetSong)
	h.handle("GET /api/users/{uid}/playlists", h.UserPlaylists)
	h.handle("POST /api/playlists", h.CreatePlaylist)
	h.handle("GET /api/songs_playlists/{uid}", h.DefaultPlaylist)
	h.handle("GET /api/playlists/{pid}", h.GetPlaylist)
	h.handle("PATCH /api/playlists/{pid}", h.RenamePlaylist)
	h.handle("DELETE /api/playlists/{pid}", h.DeletePlaylist)
	h.handle("POST /api/playlists/{pid}/songs", h.AddSong)
	h.handle("DELETE /api/playlists/{pid}/songs/{sid}", h.RemoveSong)
	h.handle("GET /api/health", h.Health)

	return h
}

func (h *CatalogHandler) handle(pattern string, fn http.HandlerFunc) {
	h.mux.HandleFunc(pattern, fn)
	h.routes = append(h.routes, pattern)
}

func (h *CatalogHandler) limited(fn http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return fn
	}
	return h.limiter.Middleware()(fn).ServeHTTP
}

// Routes implements [Handler].
func (h *CatalogHandler) Routes() []string {
	return h.routes
}

// ServeHTTP implements [http.Handler].
func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser registers an account: 201 with the user, 400 on missing fields, 409 when taken.
func (h *CatalogHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.svc.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User *models.User `json:"user"`
}

// Login answers {"user": {...}} or 401.
func (h *CatalogHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: user})
}

type artistRequest struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) CreateArtist(w http.ResponseWriter, r *http.Request) {
	var body artistRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	artist, err := h.svc.CreateArtist(r.Context(), body.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

// ListArtists answers a bare array filtered by ?q=.
func (h *CatalogHandler) ListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.svc.Artists(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

// ListSongs answers a page filtered by q, song_id and artist_id.
func (h *CatalogHandler) ListSongs(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	result, err := h.svc.Songs(r.Context(), models.SongQuery{
		Q:        q.Get("q"),
		SongID:   q.Get("song_id"),
		ArtistID: q.Get("artist_id"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LatestSongs answers a page of the newest songs.
func (h *CatalogHandler) LatestSongs(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	result, err := h.svc.LatestSongs(r.Context(), page, size)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CatalogHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.svc.Song(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UserPlaylists answers a bare array of the user's playlists with songs.
func (h *CatalogHandler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.svc.UserPlaylists(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

type playlistRequest struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

func (h *CatalogHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	playlist, err := h.svc.CreatePlaylist(r.Context(), body.Name, body.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

// DefaultPlaylist answers the user's liked-songs playlist or 404.
func (h *CatalogHandler) DefaultPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.svc.DefaultPlaylist(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *CatalogHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.svc.Playlist(r.Context(), r.PathValue("pid"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *CatalogHandler) RenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	playlist, err := h.svc.RenamePlaylist(r.Context(), r.PathValue("pid"), body.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *CatalogHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePlaylist(r.Context(), r.PathValue("pid")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

type addSongRequest struct {
	SongID string `json:"song_id"`
}

// AddSong links a song to the playlist; repeating it is harmless.
func (h *CatalogHandler) AddSong(w http.ResponseWriter, r *http.Request) {
	var body addSongRequest
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := h.svc.AddSong(r.Context(), r.PathValue("pid"), body.SongID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *CatalogHandler) RemoveSong(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveSong(r.Context(), r.PathValue("pid"), r.PathValue("sid")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *CatalogHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func pageParams(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt(r, "size", models.DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}
