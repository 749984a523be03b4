package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodex/internal/catalog"
	"github.com/desertthunder/melodex/internal/docstore"
	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/repositories"
	"github.com/desertthunder/melodex/internal/services"
	"github.com/desertthunder/melodex/internal/shared"
	"github.com/desertthunder/melodex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// StoreOpener opens the catalog store selected by the configuration.
type StoreOpener func(ctx context.Context, cfg shared.DatabaseConfig, logger *log.Logger) (models.Store, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.CatalogClient
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openStore  StoreOpener
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.CatalogClient
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenStore  StoreOpener
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Client == nil {
		opts.Client = services.NewCatalogClient(opts.Config.Client.APIURL, opts.Config.Client.StreamURL, opts.HTTPClient)
	}
	if opts.OpenStore == nil {
		opts.OpenStore = OpenStore
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		api:        opts.Client.API(),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openStore:  opts.OpenStore,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// configure reloads the configuration when --config points somewhere other than the
// file loaded at startup and applies --log-level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" && path != r.configPath {
		cfg, err := shared.ResolveConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = cfg
		r.configPath = path
		r.client = services.NewCatalogClient(cfg.Client.APIURL, cfg.Client.StreamURL, r.httpClient)
		r.api = r.client.API()
		r.logger.Debug("loaded config", "path", path)
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, catalogCommand, playlistsCommand, usersCommand,
		importCommand, seedCommand, exportCommand, apiCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// OpenStore opens SQLite (running pending migrations) or MongoDB depending on cfg.Driver.
func OpenStore(ctx context.Context, cfg shared.DatabaseConfig, logger *log.Logger) (models.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(cfg.Path, ":memory:") {
			shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
		}
		if err := shared.RunMigrationsContext(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repositories.NewStore(db), nil
	case "mongo", "mongodb":
		store, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

// withService opens the configured store for the duration of fn.
func (r *Runner) withService(ctx context.Context, fn func(*catalog.Service) error) error {
	store, err := r.openStore(ctx, r.config.Database, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("failed to close store", "error", err)
		}
	}()

	return fn(catalog.NewService(store, r.logger))
}

// withEngine is [Runner.withService] for the background task engine.
func (r *Runner) withEngine(ctx context.Context, fn func(*tasks.Engine) error) error {
	return r.withService(ctx, func(svc *catalog.Service) error {
		return fn(tasks.NewEngine(svc, nil, r.logger))
	})
}

// printProgress drains progress updates until the channel is closed. The returned channel is
// closed once the last update has been written.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ParseCatalog, tasks.SampleSongs, tasks.FetchPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ImportSongs, tasks.SeedPlaylist, tasks.ExportPlaylist:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()
	return done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
