package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

const defaultStreamBaseURL string = "http://localhost:8001"

// CatalogClient is the typed client for the catalog API and the stream server.
//
// Endpoints keep the server's shapes: song listings are paged while artists and
// user playlists come back as bare arrays.
type CatalogClient struct {
	api        *APIService
	streamBase string
}

// NewCatalogClient creates a client for the catalog API at apiURL and the stream server at streamURL.
func NewCatalogClient(apiURL, streamURL string, client *http.Client) *CatalogClient {
	if streamURL == "" {
		streamURL = defaultStreamBaseURL
	}
	return &CatalogClient{
		api:        NewAPIService(strings.TrimRight(apiURL, "/"), client),
		streamBase: strings.TrimRight(streamURL, "/"),
	}
}

// API exposes the raw service for ad-hoc requests.
func (c *CatalogClient) API() *APIService {
	return c.api
}

// StreamURL returns the audio locator of a song: <stream-base>/stream/<song_id>.mp3.
func (c *CatalogClient) StreamURL(song *models.Song) string {
	return c.streamBase + "/stream/" + url.PathEscape(song.FileName())
}

// Register creates an account.
func (c *CatalogClient) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var user models.User
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/users", body, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user without id", shared.ErrMalformedPayload)
	}
	return &user, nil
}

// Login exchanges credentials for the account. A 401 wraps [shared.ErrInvalidCredentials].
func (c *CatalogClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.ID == "" {
		return nil, fmt.Errorf("%w: login response without user id", shared.ErrMalformedPayload)
	}
	return resp.User, nil
}

// Artists lists artists whose name contains q (bare array).
func (c *CatalogClient) Artists(ctx context.Context, q string) ([]*models.Artist, error) {
	var artists []*models.Artist
	if err := c.send(ctx, http.MethodGet, "/api/artists"+query(url.Values{"q": {q}}), nil, &artists); err != nil {
		return nil, err
	}
	return artists, nil
}

// CreateArtist adds an artist.
func (c *CatalogClient) CreateArtist(ctx context.Context, name string) (*models.Artist, error) {
	var artist models.Artist
	if err := c.send(ctx, http.MethodPost, "/api/artists", map[string]string{"name": name}, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// Songs searches songs (paged).
func (c *CatalogClient) Songs(ctx context.Context, q models.SongQuery) (models.Page[*models.Song], error) {
	params := url.Values{}
	if q.Q != "" {
		params.Set("q", q.Q)
	}
	if q.SongID != "" {
		params.Set("song_id", q.SongID)
	}
	if q.ArtistID != "" {
		params.Set("artist_id", q.ArtistID)
	}
	pagingParams(params, q.Page, q.Size)
	return c.songPage(ctx, "/api/songs"+query(params))
}

// LatestSongs lists the newest songs (paged).
func (c *CatalogClient) LatestSongs(ctx context.Context, page, size int) (models.Page[*models.Song], error) {
	params := url.Values{}
	pagingParams(params, page, size)
	return c.songPage(ctx, "/api/songs/latest"+query(params))
}

func (c *CatalogClient) songPage(ctx context.Context, path string) (models.Page[*models.Song], error) {
	var page models.Page[*models.Song]
	if err := c.send(ctx, http.MethodGet, path, nil, &page); err != nil {
		return page, err
	}
	if page.Items == nil {
		page.Items = []*models.Song{}
	}
	return page, nil
}

// Song fetches one song by catalog id.
func (c *CatalogClient) Song(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	if err := c.send(ctx, http.MethodGet, "/api/songs/"+url.PathEscape(id), nil, &song); err != nil {
		return nil, err
	}
	if song.ID == "" {
		return nil, fmt.Errorf("%w: song without id", shared.ErrMalformedPayload)
	}
	return &song, nil
}

// UserPlaylists lists every playlist of a user with songs embedded (bare array).
func (c *CatalogClient) UserPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error) {
	var playlists []*models.Playlist
	path := "/api/users/" + url.PathEscape(userID) + "/playlists"
	if err := c.send(ctx, http.MethodGet, path, nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// CreatePlaylist adds an empty playlist for userID.
func (c *CatalogClient) CreatePlaylist(ctx context.Context, name, userID string) (*models.Playlist, error) {
	var playlist models.Playlist
	body := map[string]string{"name": name, "user_id": userID}
	if err := c.send(ctx, http.MethodPost, "/api/playlists", body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// DefaultPlaylist fetches the user's liked-songs playlist. A missing one wraps [shared.ErrNotFound].
func (c *CatalogClient) DefaultPlaylist(ctx context.Context, userID string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := c.send(ctx, http.MethodGet, "/api/songs_playlists/"+url.PathEscape(userID), nil, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("%w: playlist without id", shared.ErrMalformedPayload)
	}
	return &playlist, nil
}

// Playlist fetches a playlist with songs.
func (c *CatalogClient) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := c.send(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(id), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// RenamePlaylist changes a playlist's name.
func (c *CatalogClient) RenamePlaylist(ctx context.Context, id, name string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := c.send(ctx, http.MethodPatch, "/api/playlists/"+url.PathEscape(id), map[string]string{"name": name}, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// DeletePlaylist removes a playlist.
func (c *CatalogClient) DeletePlaylist(ctx context.Context, id string) error {
	return c.expectOK(ctx, http.MethodDelete, "/api/playlists/"+url.PathEscape(id), nil)
}

// AddSong adds a song to a playlist; the server treats repeats as a no-op.
func (c *CatalogClient) AddSong(ctx context.Context, playlistID, songID string) error {
	path := "/api/playlists/" + url.PathEscape(playlistID) + "/songs"
	return c.expectOK(ctx, http.MethodPost, path, map[string]string{"song_id": songID})
}

// RemoveSong removes a song from a playlist.
func (c *CatalogClient) RemoveSong(ctx context.Context, playlistID, songID string) error {
	path := "/api/playlists/" + url.PathEscape(playlistID) + "/songs/" + url.PathEscape(songID)
	return c.expectOK(ctx, http.MethodDelete, path, nil)
}

// Health checks the catalog API.
func (c *CatalogClient) Health(ctx context.Context) error {
	return c.expectOK(ctx, http.MethodGet, "/api/health", nil)
}

// StreamTrack is one entry of the stream server's /tracks listing.
type StreamTrack struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Mime     string `json:"mime"`
	URL      string `json:"url"`
}

// Tracks lists the audio files available on the stream server.
func (c *CatalogClient) Tracks(ctx context.Context) ([]StreamTrack, error) {
	stream := NewAPIService(c.streamBase, c.api.httpClient)
	resp, err := stream.Get(ctx, "/tracks")
	if err != nil {
		return nil, err
	}

	var tracks []StreamTrack
	if err := decodeResponse(resp, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *CatalogClient) expectOK(ctx context.Context, method, path string, body any) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.send(ctx, method, path, body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: expected {\"ok\": true}", shared.ErrMalformedPayload)
	}
	return nil
}

// send encodes body, performs the request and decodes a 2xx response into result.
func (c *CatalogClient) send(ctx context.Context, method, path string, body, result any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := c.api.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	return decodeResponse(resp, result)
}

// decodeResponse maps non-2xx statuses to errors and decodes the body into result.
func decodeResponse(resp *APIResponse, result any) error {
	if !resp.OK() {
		return statusError(resp)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}
	return nil
}

// StatusError is a non-2xx answer from the API. It matches [shared.ErrAPIRequest] and,
// for well-known statuses, the corresponding sentinel ([shared.ErrNotFound] for 404).
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %d): %s", shared.ErrAPIRequest, e.Code, e.Message)
}

func (e *StatusError) Unwrap() []error {
	if e.kind == nil {
		return []error{shared.ErrAPIRequest}
	}
	return []error{shared.ErrAPIRequest, e.kind}
}

func statusError(resp *APIResponse) error {
	var errResp struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(resp.Body, &errResp); err == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	se := &StatusError{Code: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusNotFound:
		se.kind = shared.ErrNotFound
	case http.StatusUnauthorized:
		se.kind = shared.ErrInvalidCredentials
	case http.StatusBadRequest:
		se.kind = shared.ErrInvalidInput
	case http.StatusConflict:
		se.kind = shared.ErrConflict
	}
	return se
}

// StatusCode extracts the HTTP status from a [StatusError], or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func pagingParams(params url.Values, page, size int) {
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
}

func query(params url.Values) string {
	for k, v := range params {
		if len(v) == 0 || v[0] == "" {
			params.Del(k)
		}
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}
