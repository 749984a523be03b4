package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/melodex/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin checks credentials against the catalog API and prints the account.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")

	r.logger.Info("signing in", "email", email)

	user, err := r.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	r.writePlain("✓ Signed in as %s\n", user.DisplayName())
	return r.writePlain("User ID: %s\n", user.ID)
}

// AuthRegister creates an account through the catalog API.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	email := cmd.String("email")
	password := cmd.String("password")

	user, err := r.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	r.logger.Info("account created", "user", user.ID)
	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	return r.writePlain("✓ Created %s (%s)\n", user.DisplayName(), user.ID)
}

// AuthStatus checks that the catalog API and the stream server are reachable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking service status")

	if err := r.client.Health(ctx); err != nil {
		return fmt.Errorf("%w: catalog API: %v", shared.ErrServiceUnavailable, err)
	}
	r.writePlain("✓ Catalog API is healthy (%s)\n", r.api.BaseURL())

	tracks, err := r.client.Tracks(ctx)
	if err != nil {
		return fmt.Errorf("%w: stream server: %v", shared.ErrServiceUnavailable, err)
	}
	return r.writePlain("✓ Stream server is serving %d tracks (%s)\n", len(tracks), r.config.Client.StreamURL)
}
