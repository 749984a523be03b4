// Package server provides HTTP routing, middleware and the two melodex HTTP services.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/songs/{id}") internally.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Services
//
// [CatalogHandler] serves the JSON catalog API under /api. Errors are rendered as {"error": "..."} with the
// status derived from the sentinel errors in the shared package.
//
// [StreamHandler] serves audio files from a music directory with single byte-range support.
//
// [Server] runs either handler with graceful shutdown on context cancellation.
package server
