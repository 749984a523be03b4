// Package services implements the HTTP clients for the catalog API and the stream server.
//
// # Raw API
//
// [APIService] performs raw requests and returns an [APIResponse]. Bodies are read as
// text and sanitized with [shared.SanitizeJSON] first, since some catalog backends emit
// bare NaN or Infinity for missing durations.
//
// # Catalog Client
//
// [CatalogClient] wraps the raw service with typed endpoints. Errors:
//   - [shared.ErrAPIRequest] : any non-2xx status, see [StatusError]
//   - [shared.ErrNotFound] : additionally matched for 404
//   - [shared.ErrMalformedPayload] : a 2xx body of the wrong shape
//
// List shapes are per endpoint: Songs and LatestSongs return a [models.Page], while
// Artists and UserPlaylists return slices.
package services
