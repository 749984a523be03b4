package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/server"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// ServeAPI runs the catalog API until interrupted.
func (r *Runner) ServeAPI(ctx context.Context, cmd *cli.Command) error {
	return r.serve(ctx, cmd, true, false)
}

// ServeStream runs the audio stream server until interrupted.
func (r *Runner) ServeStream(ctx context.Context, cmd *cli.Command) error {
	return r.serve(ctx, cmd, false, true)
}

// ServeAll runs both servers in one process.
func (r *Runner) ServeAll(ctx context.Context, cmd *cli.Command) error {
	return r.serve(ctx, cmd, true, true)
}

func (r *Runner) serve(ctx context.Context, cmd *cli.Command, api, stream bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if port := cmd.Int("port"); port > 0 {
		if api {
			r.config.Server.Port = int(port)
		} else {
			r.config.Stream.Port = int(port)
		}
	}
	if dir := cmd.String("music-dir"); dir != "" {
		r.config.Stream.MusicDir = dir
	}

	sentryOn, err := shared.InitSentry(r.config.Sentry, cmd.Root().Version)
	if err != nil {
		return err
	}
	if sentryOn {
		defer shared.FlushSentry()
		r.logger.Info("sentry enabled", "environment", r.config.Sentry.Environment)
	}
	opts := server.AppOptions{AllowedOrigins: r.config.Server.AllowedOrigins, Sentry: sentryOn}

	g, ctx := errgroup.WithContext(ctx)

	if stream {
		if _, err := os.Stat(r.config.Stream.MusicDir); err != nil {
			return fmt.Errorf("%w: music dir %s: %v", shared.ErrInvalidConfig, r.config.Stream.MusicDir, err)
		}
		handler := server.NewStreamApp(r.config.Stream, opts, shared.WithLogger(r.logger, "service", "stream"))
		srv := server.NewServer("stream", r.config.Stream.Addr(), handler, r.logger)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if api {
		return r.withService(ctx, func(svc *catalog.Service) error {
			handler := server.NewCatalogApp(svc, r.config.Server, opts, shared.WithLogger(r.logger, "service", "api"))
			srv := server.NewServer("api", r.config.Server.Addr(), handler, r.logger)
			g.Go(func() error { return srv.Run(ctx) })
			return g.Wait()
		})
	}

	return g.Wait()
}
