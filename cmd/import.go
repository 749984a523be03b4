package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/desertthunder/melodex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ImportSongs loads a catalog CSV into the configured store.
func (r *Runner) ImportSongs(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: catalog CSV path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	opts := tasks.ImportOpts{NumWorkers: cmd.Int("workers"), RateLimit: cmd.Float("rate")}

	r.logger.Info("importing catalog", "file", path, "workers", opts.NumWorkers)
	r.writePlain("Importing songs from %s...\n\n", path)

	return r.withEngine(ctx, func(engine *tasks.Engine) error {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := r.printProgress(progressCh)

		result, err := engine.ImportSongs(ctx, progressCh, f, opts)
		close(progressCh)
		<-done

		if result != nil {
			r.writePlain("\n")
			r.writePlainHeader("Import Complete")
			r.writePlain("Rows:    %d\n", result.Total)
			r.writePlain("Created: %d\n", result.Created)
			r.writePlain("Skipped: %d (already in catalog)\n", result.Skipped)
			r.writePlain("Invalid: %d\n", result.Invalid)
			r.writePlain("Failed:  %d\n", result.Failed)
			r.writePlain("Artists: %d\n", result.Artists)

			if len(result.Errors) > 0 {
				r.writePlain("\nRows with problems:\n")
				for _, rowErr := range result.Errors {
					r.writePlain("  - %s\n", rowErr.Error())
				}
			}
		}
		return err
	})
}

// SeedPlaylist fills a user's default playlist with a sample of the catalog.
func (r *Runner) SeedPlaylist(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	opts := tasks.SeedOpts{Size: cmd.Int("size"), Seed: uint64(cmd.Int("seed"))}

	return r.withService(ctx, func(svc *catalog.Service) error {
		if userID == "" {
			email := cmd.String("email")
			if email == "" {
				return fmt.Errorf("%w: --user or --email", shared.ErrMissingArgument)
			}
			user, err := svc.Store().Users().GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			userID = user.ID
		}

		engine := tasks.NewEngine(svc, nil, r.logger)
		progressCh := make(chan tasks.ProgressUpdate, 100)
		done := r.printProgress(progressCh)

		result, err := engine.SeedPlaylist(ctx, progressCh, userID, opts)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Seed Complete")
		r.writePlain("Playlist:  %s\n", result.Playlist.Name)
		r.writePlain("Available: %d songs\n", result.Available)
		r.writePlain("Added:     %d\n", result.Added)
		return r.writePlain("Tracks:    %d (%s)\n", result.Playlist.TrackCount(), shared.FormatDuration(int(result.Playlist.TotalDuration())))
	})
}
