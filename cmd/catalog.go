package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogSongs searches songs by title, artist or song id.
func (r *Runner) CatalogSongs(ctx context.Context, cmd *cli.Command) error {
	q := models.SongQuery{
		Q:        cmd.String("q"),
		SongID:   cmd.String("song-id"),
		ArtistID: cmd.String("artist"),
		Page:     cmd.Int("page"),
		Size:     cmd.Int("size"),
	}

	page, err := r.client.Songs(ctx, q)
	if err != nil {
		return err
	}
	return r.printSongs(page, cmd.Bool("json"))
}

// CatalogLatest lists the newest songs.
func (r *Runner) CatalogLatest(ctx context.Context, cmd *cli.Command) error {
	page, err := r.client.LatestSongs(ctx, cmd.Int("page"), cmd.Int("size"))
	if err != nil {
		return err
	}
	return r.printSongs(page, cmd.Bool("json"))
}

// CatalogSong shows one song by its catalog id.
func (r *Runner) CatalogSong(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	song, err := r.client.Song(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(song, true)
	}

	r.writePlainHeader(song.Title)
	r.writePlain("ID:       %s\n", song.ID)
	r.writePlain("Song ID:  %s\n", song.SongID)
	r.writePlain("Album:    %s\n", song.Album)
	r.writePlain("Duration: %s\n", shared.FormatDuration(song.Seconds()))
	r.writePlain("Year:     %s\n", song.ReleaseYear)
	return r.writePlain("Stream:   %s\n", r.client.StreamURL(song))
}

// CatalogArtists lists or searches artists.
func (r *Runner) CatalogArtists(ctx context.Context, cmd *cli.Command) error {
	artists, err := r.client.Artists(ctx, cmd.String("q"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(artists, true)
	}

	for _, a := range artists {
		r.writePlain("%-24s %s\n", a.ID, a.Name)
	}
	return r.writePlainln("%d artists", len(artists))
}

// CatalogAddArtist creates an artist through the API.
func (r *Runner) CatalogAddArtist(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}

	artist, err := r.client.CreateArtist(ctx, name)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created artist %s (%s)\n", artist.Name, artist.ID)
}

// CatalogTracks lists the files the stream server can serve.
func (r *Runner) CatalogTracks(ctx context.Context, cmd *cli.Command) error {
	tracks, err := r.client.Tracks(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	for _, t := range tracks {
		r.writePlain("%-40s %10d  %s\n", t.Filename, t.Size, t.Mime)
	}
	return r.writePlainln("%d tracks", len(tracks))
}

func (r *Runner) printSongs(page models.Page[*models.Song], asJSON bool) error {
	if asJSON {
		return r.writeJSON(page, true)
	}

	for _, s := range page.Items {
		r.writePlain("%-24s %-40s %-24s %s\n", s.ID, s.Title, s.Album, shared.FormatDuration(s.Seconds()))
	}
	return r.writePlainln("page %d • %d of %d songs", page.Page, len(page.Items), page.Total)
}

// PlaylistsList prints a user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.client.UserPlaylists(ctx, cmd.String("user"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	for _, p := range playlists {
		name := p.Name
		if p.IsDefault() {
			name += " ♥"
		}
		r.writePlain("%-24s %-32s %4d tracks  %s\n", p.ID, name, p.TrackCount(), shared.FormatDuration(int(p.TotalDuration())))
	}
	return nil
}

// PlaylistsShow prints one playlist with its tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	pl, err := r.client.Playlist(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(pl, true)
	}

	r.writePlainHeader(pl.Name)
	for i, s := range pl.Songs {
		r.writePlain("%3d. %-40s %s\n", i+1, s.Title, shared.FormatDuration(s.Seconds()))
	}
	return r.writePlainln("%d tracks • %s", pl.TrackCount(), shared.FormatDuration(int(pl.TotalDuration())))
}

// PlaylistsCreate creates a playlist for a user.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	pl, err := r.client.CreatePlaylist(ctx, cmd.String("name"), cmd.String("user"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %s (%s)\n", pl.Name, pl.ID)
}

// PlaylistsRename renames a playlist.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	pl, err := r.client.RenamePlaylist(ctx, cmd.StringArg("id"), cmd.String("name"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Renamed playlist to %s\n", pl.Name)
}

// PlaylistsDelete deletes a playlist and its memberships.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := r.client.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// PlaylistsAdd adds a song to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	pid, sid := cmd.StringArg("id"), cmd.String("song")
	if err := r.client.AddSong(ctx, pid, sid); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s to %s\n", sid, pid)
}

// PlaylistsRemove removes a song from a playlist.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	pid, sid := cmd.StringArg("id"), cmd.String("song")
	if err := r.client.RemoveSong(ctx, pid, sid); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from %s\n", sid, pid)
}

// UsersCreate registers an account directly in the configured store.
func (r *Runner) UsersCreate(ctx context.Context, cmd *cli.Command) error {
	return r.withService(ctx, func(svc *catalog.Service) error {
		user, err := svc.Register(ctx, cmd.String("username"), cmd.String("email"), cmd.String("password"))
		if err != nil {
			return err
		}
		r.logger.Info("user created", "user", user.ID, "email", user.Email)
		return r.writePlain("✓ Created %s (%s)\n", user.DisplayName(), user.ID)
	})
}

// UsersShow looks an account up by email in the configured store.
func (r *Runner) UsersShow(ctx context.Context, cmd *cli.Command) error {
	return r.withService(ctx, func(svc *catalog.Service) error {
		user, err := svc.Store().Users().GetByEmail(ctx, cmd.String("email"))
		if err != nil {
			return err
		}
		return r.writeJSON(user, true)
	})
}
