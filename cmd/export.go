package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/melodex/internal/shared"
	"github.com/desertthunder/melodex/internal/tasks"
	"github.com/urfave/cli/v3"
)

var exportFormats = []string{"json", "csv", "markdown", "txt"}

// ExportPlaylists writes playlists to disk, either the ids given or every playlist of a user.
func (r *Runner) ExportPlaylists(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if !validFormat(format) {
		return fmt.Errorf("%w: format must be one of %s", shared.ErrInvalidArgument, strings.Join(exportFormats, ", "))
	}

	ids := cmd.StringSlice("id")
	userID := cmd.String("user")
	if len(ids) == 0 && userID == "" {
		return fmt.Errorf("%w: --id or --user", shared.ErrMissingArgument)
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Covers:     cmd.Bool("covers"),
		HTTPClient: r.httpClient,
	}

	return r.withEngine(ctx, func(engine *tasks.Engine) error {
		progressCh := make(chan tasks.ProgressUpdate, 100)
		done := r.printProgress(progressCh)

		if len(ids) == 0 {
			var err error
			if ids, err = engine.PlaylistIDs(ctx, progressCh, userID); err != nil {
				close(progressCh)
				<-done
				return err
			}
		}

		result, err := engine.BulkExport(ctx, progressCh, ids, opts)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Export Complete")
		r.writePlain("Format:     %s\n", format)
		r.writePlain("Playlists:  %d\n", result.TotalPlaylists)
		r.writePlain("Successful: %d\n", result.SuccessfulExports)
		r.writePlain("Failed:     %d\n", result.FailedExports)
		r.writePlain("Output:     %s\n", result.OutputDirectory)
		r.writePlain("Manifest:   %s\n", result.ManifestPath)

		if result.FailedExports > 0 {
			r.writePlain("\nFailed playlists:\n")
			for _, res := range result.Results {
				if res.Error != nil {
					r.writePlain("  - %s: %v\n", res.PlaylistID, res.Error)
				}
			}
		}
		return nil
	})
}

func validFormat(format string) bool {
	for _, f := range exportFormats {
		if f == format {
			return true
		}
	}
	return false
}
