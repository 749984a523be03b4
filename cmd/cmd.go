// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
		&cli.IntFlag{Name: "size", Usage: "Page size (max 100)", Value: 25},
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the database (SQLite migrations or MongoDB indexes)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "Drop every MongoDB collection first"},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the latest SQLite migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the HTTP services.
func serveCommand(r *Runner) *cli.Command {
	portFlag := &cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Override the configured port"}
	dirFlag := &cli.StringFlag{Name: "music-dir", Usage: "Override the configured music directory"}

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the catalog API and stream server",
		Commands: []*cli.Command{
			{
				Name:   "api",
				Usage:  "Run the catalog API",
				Flags:  []cli.Flag{portFlag},
				Action: r.ServeAPI,
			},
			{
				Name:   "stream",
				Usage:  "Run the audio stream server",
				Flags:  []cli.Flag{portFlag, dirFlag},
				Action: r.ServeStream,
			},
			{
				Name:   "all",
				Usage:  "Run both servers on their configured ports",
				Flags:  []cli.Flag{dirFlag},
				Action: r.ServeAll,
			},
		},
	}
}

// authCommand handles account operations against the API
func authCommand(r *Runner) *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
		&cli.StringFlag{Name: "password", Usage: "Account password", Required: true, Sources: cli.EnvVars("MELODEX_PASSWORD")},
		jsonFlag(),
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, register and check service status",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Verify credentials against the catalog API",
				Flags:  credentials,
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account through the catalog API",
				Flags:  append([]cli.Flag{&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Display name", Required: true}}, credentials...),
				Action: r.AuthRegister,
			},
			{
				Name:   "status",
				Usage:  "Check the catalog API and stream server",
				Action: r.AuthStatus,
			},
		},
	}
}

// catalogCommand browses songs, artists and stream files
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse the music catalog",
		Commands: []*cli.Command{
			{
				Name:  "songs",
				Usage: "Search songs",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "Title substring"},
					&cli.StringFlag{Name: "artist", Usage: "Artist id"},
					&cli.StringFlag{Name: "song-id", Usage: "Source song id"},
					jsonFlag(),
				}, pagingFlags()...),
				Action: r.CatalogSongs,
			},
			{
				Name:   "latest",
				Usage:  "List the newest songs",
				Flags:  append([]cli.Flag{jsonFlag()}, pagingFlags()...),
				Action: r.CatalogLatest,
			},
			{
				Name:      "song",
				Usage:     "Show one song",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.CatalogSong,
			},
			{
				Name:  "artists",
				Usage: "List or search artists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "Name substring"},
					jsonFlag(),
				},
				Action: r.CatalogArtists,
			},
			{
				Name:      "add-artist",
				Usage:     "Create an artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.CatalogAddArtist,
			},
			{
				Name:   "tracks",
				Usage:  "List audio files on the stream server",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CatalogTracks,
			},
		},
	}
}

// playlistsCommand manages playlists through the API
func playlistsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}
	songFlag := &cli.StringFlag{Name: "song", Aliases: []string{"s"}, Usage: "Song id", Required: true}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a user's playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User id", Required: true},
					jsonFlag(),
				},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.PlaylistsShow,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Playlist name", Required: true},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "rename",
				Usage:     "Rename a playlist",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name", Required: true},
				},
				Action: r.PlaylistsRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: idArg,
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "add",
				Usage:     "Add a song to a playlist",
				Arguments: idArg,
				Flags:     []cli.Flag{songFlag},
				Action:    r.PlaylistsAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a song from a playlist",
				Arguments: idArg,
				Flags:     []cli.Flag{songFlag},
				Action:    r.PlaylistsRemove,
			},
		},
	}
}

// usersCommand manages accounts directly in the store
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage accounts in the configured database",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account with its default playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("MELODEX_PASSWORD")},
				},
				Action: r.UsersCreate,
			},
			{
				Name:  "show",
				Usage: "Look an account up by email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
				},
				Action: r.UsersShow,
			},
		},
	}
}

// importCommand loads catalog data
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import catalog data",
		Commands: []*cli.Command{
			{
				Name:      "songs",
				Usage:     "Import songs from a catalog CSV (id,audio_url,title,artist,album,duration,release_year,cover)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent workers (max 10)", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Rows per second, 0 for unlimited"},
				},
				Action: r.ImportSongs,
			},
		},
	}
}

// seedCommand fills default playlists
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed a user's liked songs with a sample of the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "User id"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "User email, used when --user is empty"},
			&cli.IntFlag{Name: "size", Aliases: []string{"n"}, Usage: "Songs to add", Value: 50},
			&cli.IntFlag{Name: "seed", Usage: "Sample seed", Value: 42},
		},
		Action: r.SeedPlaylist,
	}
}

// exportCommand writes playlists to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlists to json, csv, markdown or txt",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "id", Usage: "Playlist id (repeatable)"},
			&cli.StringFlag{Name: "user", Usage: "Export every playlist of this user"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "json"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default melodex_export_<epoch>)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent workers (max 10)", Value: 5},
			&cli.FloatFlag{Name: "rate", Usage: "Playlist fetches per second", Value: 5},
			&cli.BoolFlag{Name: "covers", Usage: "Download a cover image for markdown exports"},
		},
		Action: r.ExportPlaylists,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	pathArg := []cli.Argument{&cli.StringArg{Name: "path"}}
	dataFlag := &cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON body to send", Required: true}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the catalog API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints JSON",
				Arguments: pathArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output compact JSON"},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: pathArg,
				Flags:     []cli.Flag{dataFlag},
				Action:    r.APIPost,
			},
			{
				Name:      "patch",
				Usage:     "Direct PATCH with JSON body",
				Arguments: pathArg,
				Flags:     []cli.Flag{dataFlag},
				Action:    r.APIPatch,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: pathArg,
				Action:    r.APIDelete,
			},
			{
				Name:  "dump",
				Usage: "Dump health, artists, latest songs and stream tracks",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
					&cli.BoolFlag{Name: "save", Usage: "Save dump to api_dump.json"},
				},
				Action: r.APIDump,
			},
		},
	}
}

// playCommand returns the top-level TUI command.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Sign in on start"},
			&cli.StringFlag{Name: "password", Usage: "Password for --email", Sources: cli.EnvVars("MELODEX_PASSWORD")},
			&cli.StringFlag{Name: "pcm-out", Usage: "Write decoded 16-bit stereo PCM to this file"},
			&cli.StringFlag{Name: "log-file", Usage: "Log destination while the TUI runs", Value: "./tmp/melodex-tui.log"},
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record play history"},
		},
		Action: r.Play,
	}
}
