package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, executor and service are opened on first use so commands
// like "setup config" work without either.
type Runner struct {
	config     *shared.Config
	loadConfig bool
	executor   services.MutationExecutor
	db         *sql.DB
	ownsDB     bool
	service    *tasks.Service
	runs       *repositories.MigrationRunRepository
	logger     *log.Logger
	output     io.Writer
	styled     bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config // loaded from --config when nil
	Executor services.MutationExecutor
	DB       *sql.DB // must already be migrated
	Logger   *log.Logger
	Output   io.Writer
	Styled   bool
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		loadConfig: loadConfig,
		executor:   opts.Executor,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		styled:     opts.Styled,
	}
}

// configure loads the config file named by --config and applies the log level.
// It runs before every command.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.loadConfig {
		config, err := shared.LoadOrDefault(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.loadConfig = false
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	if r.output == os.Stdout && !cmd.Bool("no-color") {
		r.styled = true
	}
	return ctx, nil
}

// newExecutor builds the [services.MutationExecutor] selected by executor.transport.
func newExecutor(config *shared.Config, logger *log.Logger) (services.MutationExecutor, error) {
	ec := config.Executor
	opts := services.ClientOpts{RateLimit: ec.RateLimit, Logger: shared.WithLogger(logger, "transport", ec.Transport)}

	switch ec.Transport {
	case shared.TransportProcess:
		return services.NewClient(&services.ProcessTransport{
			Command:        ec.Command,
			MigrateCommand: ec.MigrateCommand,
			AuthFile:       ec.AuthFile,
			Timeout:        ec.Timeout(),
		}, opts), nil
	case shared.TransportHTTP:
		client := &http.Client{Timeout: ec.Timeout()}
		return services.NewClient(services.NewHTTPTransport(ec.ProxyURL, ec.AuthFile, client), opts), nil
	case shared.TransportMemory:
		logger.Warn("using the in-memory executor, nothing is sent to YouTube Music")
		return services.NewMemoryExecutor(nil), nil
	default:
		return nil, fmt.Errorf("%w: unknown executor transport %q", shared.ErrInvalidConfig, ec.Transport)
	}
}

// open opens the database and executor on first use and returns the service.
func (r *Runner) open() (*tasks.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	if r.db == nil {
		r.logger.Debug("opening database", "path", r.config.Database.Path)
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, err
		}
		r.db, r.ownsDB = db, true
	}

	if r.executor == nil {
		executor, err := newExecutor(r.config, r.logger)
		if err != nil {
			return nil, err
		}
		r.executor = executor
	}

	r.runs = repositories.NewMigrationRunRepository(r.db)
	r.service = tasks.NewService(repositories.NewPlaylistRepository(r.db), r.executor, tasks.ServiceOpts{
		Runs:      r.runs,
		BatchSize: r.config.Migration.BatchSize,
		Logger:    r.logger,
	})
	return r.service, nil
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		r.ownsDB = false
		return r.db.Close()
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, executorCommand, playlistsCommand, diffCommand, migrateCommand,
		editCommand, markCommand, historyCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// progress returns a channel for service progress updates and a function that
// stops printing them. Call stop before writing anything else.
func (r *Runner) progress() (chan<- tasks.ProgressUpdate, func()) {
	updates := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range updates {
			r.writePlain("%s\n", u.Message)
		}
	}()

	var once sync.Once
	return updates, func() {
		once.Do(func() {
			close(updates)
			wg.Wait()
		})
	}
}

// positionalKeys maps 1-based positions, as printed by the list commands, to
// positional keys of p.
func positionalKeys(p models.Playlist, positions []int) ([]string, error) {
	for _, pos := range positions {
		if pos < 1 || pos > p.Len() {
			return nil, fmt.Errorf("%w: position %d is outside playlist %s (1-%d)", shared.ErrInvalidArgument, pos, p.ID, p.Len())
		}
	}
	return tasks.PositionalKeysAt(p, zeroBased(positions)), nil
}

// zeroBased converts 1-based positions to indices.
func zeroBased(positions []int) []int {
	out := make([]int, len(positions))
	for i, pos := range positions {
		out[i] = pos - 1
	}
	return out
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
