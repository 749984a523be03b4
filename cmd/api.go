package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/melodex/internal/services"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the catalog API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request with a JSON body
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data, err := jsonBody(cmd.String("data"))
	if err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.api.Post(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

// APIPatch makes a direct PATCH request with a JSON body
func (r *Runner) APIPatch(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data, err := jsonBody(cmd.String("data"))
	if err != nil {
		return err
	}

	r.logger.Info("PATCH request", "path", path)

	resp, err := r.api.Patch(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

// APIDelete makes a direct DELETE request
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")

	r.logger.Info("DELETE request", "path", path)

	resp, err := r.api.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

// APIDump fetches the public catalog state in one document.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	r.logger.Info("dumping API state")
	r.writePlain("Fetching catalog state...\n\n")

	type DumpData struct {
		Health  any   `json:"health"`
		Artists any   `json:"artists,omitempty"`
		Latest  any   `json:"latest,omitempty"`
		Tracks  any   `json:"tracks,omitempty"`
		Errors  []any `json:"errors,omitempty"`
	}

	dump := DumpData{Errors: []any{}}

	fetch := func(label, path string, dst *any) {
		r.writePlain("%s\n", label)
		resp, err := r.api.Get(ctx, path)
		switch {
		case err != nil:
			dump.Errors = append(dump.Errors, map[string]string{"endpoint": path, "error": err.Error()})
			r.logger.Warn("dump request failed", "path", path, "error", err)
		case !resp.OK():
			dump.Errors = append(dump.Errors, map[string]string{"endpoint": path, "error": fmt.Sprintf("status %d", resp.StatusCode)})
			r.logger.Warn("dump request failed", "path", path, "status", resp.StatusCode)
		default:
			*dst = resp.JSONData
		}
	}

	fetch("📊 Fetching health status...", "/api/health", &dump.Health)
	fetch("👨‍🎤 Fetching artists...", "/api/artists", &dump.Artists)
	fetch("🎵 Fetching latest songs...", "/api/songs/latest", &dump.Latest)

	r.writePlain("💿 Fetching stream tracks...\n")
	if tracks, err := r.client.Tracks(ctx); err == nil {
		dump.Tracks = tracks
	} else {
		dump.Errors = append(dump.Errors, map[string]string{"endpoint": "/tracks", "error": err.Error()})
		r.logger.Warn("failed to fetch tracks", "error", err)
	}

	r.writePlain("\n✓ Dump complete\n\n")

	if save {
		saveFile := "api_dump.json"
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("✓ Dump saved to %s\n\n", saveFile)
		}
	}

	return r.writeJSON(dump, pretty)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	if _, err := r.output.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return r.writePlain("\n")
}

func jsonBody(data string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}
	return []byte(data), nil
}
