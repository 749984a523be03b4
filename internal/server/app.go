package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/shared"
)

// AppOptions selects the cross-cutting middleware for a service.
type AppOptions struct {
	AllowedOrigins []string
	Sentry         bool
}

// NewCatalogApp assembles the catalog API: recovery, optional Sentry, request logging and CORS on /api.
func NewCatalogApp(svc *catalog.Service, cfg shared.ServerConfig, opts AppOptions, logger *log.Logger) http.Handler {
	var limiter *RateLimiter
	if cfg.LoginRateLimit > 0 {
		limiter = NewRateLimiter(cfg.LoginRateLimit, cfg.LoginBurst)
	}

	router := newRouter(opts, logger)
	router.Handler(NewCatalogHandler(svc, logger, limiter))
	return CORS("/api/", opts.AllowedOrigins)(router)
}

// NewStreamApp assembles the audio stream service with CORS on every path.
func NewStreamApp(cfg shared.StreamConfig, opts AppOptions, logger *log.Logger) http.Handler {
	router := newRouter(opts, logger)
	router.Handler(NewStreamHandler(cfg.MusicDir, cfg.ChunkSize, logger))
	return CORS("/", opts.AllowedOrigins)(router)
}

func newRouter(opts AppOptions, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger))
	if opts.Sentry {
		router.Use(Sentry())
	}
	router.Use(Logging(logger))
	return router
}
