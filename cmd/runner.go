package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/repositories"
	"github.com/SubhabrataBarik/TaskMaster/internal/server"
	"github.com/SubhabrataBarik/TaskMaster/internal/services"
	"github.com/SubhabrataBarik/TaskMaster/internal/session"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	auth       *services.AuthService
	tasks      *services.TaskService
	subtasks   *services.SubtaskService
	store      *session.Store
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *session.Store
	DB         *sql.DB
	HTTPClient *http.Client // overrides the client built from config, including the mock transport
	Logger     *log.Logger
	Output     io.Writer
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

	r := &Runner{
		configPath: opts.ConfigPath,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.wire(opts.Config, opts.Store, opts.HTTPClient)
	return r
}

// wire builds the API client and services for config.
func (r *Runner) wire(config *shared.Config, store *session.Store, client *http.Client) {
	if store == nil {
		store = session.NewStore(nil, r.logger)
	}
	if client == nil {
		client = &http.Client{Timeout: config.API.TimeoutDuration()}
		if config.API.UseMock {
			client.Transport = r.mockTransport(config)
		}
	}

	r.config = config
	r.store = store
	r.httpClient = client
	r.api = services.NewAPIService(services.APIOpts{
		BaseURL:    config.API.BaseURL,
		HTTPClient: client,
		Store:      store,
		Endpoints:  services.EndpointsFromConfig(config.API.Endpoints),
		RateLimit:  config.API.RateLimit,
		Timeout:    config.API.TimeoutDuration(),
		Logger:     shared.WithLogger(r.logger, "component", "api"),
		OnSessionExpired: func() {
			r.logger.Warn("session expired; run `taskmaster auth login` to sign in again")
		},
	})
	r.auth = services.NewAuthService(r.api)
	r.tasks = services.NewTaskService(r.api)
	r.subtasks = services.NewSubtaskService(r.api)
}

// mockTransport serves API requests from a seeded in-process backend mounted under the base URL's path.
func (r *Runner) mockTransport(config *shared.Config) http.RoundTripper {
	logger := shared.WithLogger(r.logger, "component", "mock")
	api := server.NewMockAPI(server.MockOpts{
		Prefix: mockPrefix(config.API.BaseURL),
		Seed:   true,
		Logger: logger,
	})
	r.logger.Debug("using in-process mock backend", "demo_email", server.DemoEmail)
	return &server.Transport{Handler: server.NewMockServer(api, logger)}
}

func mockPrefix(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

// Configure resolves the config file, environment and session storage before any command runs.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(".env"); err != nil {
		return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}

	config, path, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if err := config.ApplyEnv(); err != nil {
		return ctx, err
	}

	level := config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	if err := config.Validate(); err != nil {
		return ctx, err
	}

	store, db, err := OpenStore(config, r.logger)
	if err != nil {
		return ctx, err
	}

	r.configPath = path
	r.db = db
	r.wire(config, store, nil)

	r.logger.Debug("configured", "config", path, "base_url", config.API.BaseURL, "storage", config.Storage.Driver, "mock", config.API.UseMock)
	return ctx, nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// OpenStore builds the session store selected by storage.driver.
//
// The sqlite driver also returns the open database, which the task cache shares.
// A database that cannot be opened degrades to in-memory storage with a warning.
func OpenStore(config *shared.Config, logger *log.Logger) (*session.Store, *sql.DB, error) {
	switch strings.ToLower(config.Storage.Driver) {
	case shared.DriverMemory:
		return session.NewStore(nil, logger), nil, nil
	case shared.DriverSQLite:
		db, err := shared.OpenDatabase(config.Database)
		if err != nil {
			logger.Warn("session database unavailable, tokens will not outlive this process", "error", err)
			return session.NewStore(nil, logger), nil, nil
		}
		return session.NewStore(repositories.NewSessionRepository(db), logger), db, nil
	case shared.DriverFile, "":
		return session.NewStore(session.NewFileBackend(config.SessionPath()), logger), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, config.Storage.Driver)
}

// database returns the open database, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	r.db = db
	return db, nil
}

// SetLogger replaces the logger, e.g. to send output to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, tasksCommand, subtasksCommand, setupCommand, mockCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
