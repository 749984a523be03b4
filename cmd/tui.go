package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/melodex/internal/history"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/player"
	"github.com/desertthunder/melodex/internal/session"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/desertthunder/melodex/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play launches the interactive terminal player.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	var sink io.Writer = io.Discard
	if path := cmd.String("pcm-out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to open pcm output: %w", err)
		}
		defer f.Close()
		sink = f
	}

	sess := session.New(r.client)

	controller := player.New(r.client, sess,
		player.WithLogger(shared.WithLogger(r.logger, "component", "player")),
		player.WithVolume(r.config.Player.Volume),
		player.WithAudioFactory(player.StreamAudioFactory(
			player.WithSink(sink),
			player.WithStreamLogger(shared.WithLogger(r.logger, "component", "audio")),
		)),
	)
	defer controller.Close()

	unsubscribe := sess.Subscribe(func(*models.User) { controller.UserChanged() })
	defer unsubscribe()

	opts := ui.Options{
		Catalog: r.client,
		Player:  controller,
		Session: sess,
		Logger:  r.logger,
	}

	if !cmd.Bool("no-history") {
		hist, err := history.Open(r.config.Player.HistoryPath, r.config.Player.HistoryLimit)
		if err != nil {
			r.logger.Warn("history disabled", "error", err)
		} else {
			defer hist.Close()
			opts.History = hist
		}
	}

	if email := cmd.String("email"); email != "" {
		if _, err := sess.Login(ctx, email, cmd.String("password")); err != nil {
			return err
		}
	}

	model := ui.NewModel(ctx, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
