package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")

	// Storage errors
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("already exists")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrMalformedPayload   = fmt.Errorf("malformed payload")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Entity lookups; each wraps [ErrNotFound]
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrArtistNotFound   = fmt.Errorf("artist %w", ErrNotFound)
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", ErrNotFound)
	ErrTrackNotFound    = fmt.Errorf("track %w", ErrNotFound)

	// Streaming errors
	ErrInvalidRange = fmt.Errorf("invalid range")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
