package core

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/catalog"
	"github.com/movie-tracker/movietracker-web/internal/config"
	"github.com/movie-tracker/movietracker-web/internal/credentials"
	"github.com/movie-tracker/movietracker-web/internal/db"
	"github.com/movie-tracker/movietracker-web/internal/dialog"
	"github.com/movie-tracker/movietracker-web/internal/jobs"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/retry"
	"github.com/movie-tracker/movietracker-web/internal/session"
	"github.com/movie-tracker/movietracker-web/internal/snapshot"
	"github.com/movie-tracker/movietracker-web/internal/store"
	"github.com/movie-tracker/movietracker-web/internal/watchlist"
	"github.com/movie-tracker/movietracker-web/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config     *config.Config
	db         *sql.DB
	store      *store.Store
	creds      credentials.Store
	backend    *backend.Client
	session    *session.Session
	snapshot   *snapshot.Snapshot
	pager      *catalog.Pager
	resolver   *catalog.Resolver
	watchlist  *watchlist.Coordinator
	dialog     *dialog.Dialog
	jobManager *jobs.JobManager
	wsHub      *websocket.Hub
}

// Options override pieces of the wiring, for tests.
type Options struct {
	Clock retry.Clock
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running migrations
// and opening the credential file.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	creds, err := credentials.NewFileStore(cfg.Credentials.Path)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open credentials: %w", err)
	}

	app := Build(cfg, database, creds, Options{})
	// Another process (the CLI, a second daemon) may log in or out.
	if err := creds.Watch(func(token string, present bool) {
		app.session.CredentialsChanged()
	}); err != nil {
		log.Printf("Warning: not watching credentials file: %v", err)
	}

	log.Println("Core application setup complete.")
	return app, nil
}

// Build wires the components around an open database and credential store.
func Build(cfg *config.Config, database *sql.DB, creds credentials.Store, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		db:     database,
		store:  store.New(database),
		creds:  creds,
		wsHub:  websocket.NewHub(),
	}
	go a.wsHub.Run()

	a.backend = backend.New(cfg.Backend.BaseURL, cfg.BackendTimeout(), creds)
	a.session = session.New(a.backend, creds)
	a.snapshot = snapshot.New(a.backend)
	a.pager = catalog.NewPager(a.backend, catalog.Options{
		Debounce: cfg.Debounce(),
		Retry: retry.Policy{
			MaxAttempts: cfg.Catalog.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Catalog.Retry.BaseDelayMS) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Catalog.Retry.MaxDelayMS) * time.Millisecond,
		},
		Clock: opts.Clock,
		OnChange: func() {
			a.wsHub.BroadcastJSON(models.ChangeEvent{Type: models.EventCatalog, Data: a.pager.Status()})
		},
	})
	a.resolver = catalog.NewResolver(a.pager, a.store, a.backend)
	a.watchlist = watchlist.NewCoordinator(a.backend, a.snapshot)
	a.dialog = dialog.New(a.watchlist)

	a.snapshot.OnChange(func() {
		a.wsHub.BroadcastJSON(models.ChangeEvent{Type: models.EventWatchlist})
	})
	a.session.OnReset(func() {
		a.snapshot.Clear()
		a.dialog.Cancel()
		a.pager.Reset()
		a.wsHub.BroadcastJSON(models.ChangeEvent{Type: models.EventSession})
	})

	a.jobManager = jobs.NewManager(a)
	jobs.RegisterDefaults(a.jobManager)
	return a
}

// Context is cancelled when the app closes. Background work that must
// outlive a single request runs under it.
func (a *App) Context() context.Context { return a.ctx }

func (a *App) Config() *config.Config            { return a.config }
func (a *App) DB() *sql.DB                       { return a.db }
func (a *App) Store() *store.Store               { return a.store }
func (a *App) Backend() *backend.Client          { return a.backend }
func (a *App) Session() *session.Session         { return a.session }
func (a *App) Snapshot() *snapshot.Snapshot      { return a.snapshot }
func (a *App) Pager() *catalog.Pager             { return a.pager }
func (a *App) Resolver() *catalog.Resolver       { return a.resolver }
func (a *App) Watchlist() *watchlist.Coordinator { return a.watchlist }
func (a *App) Dialog() *dialog.Dialog            { return a.dialog }
func (a *App) JobManager() *jobs.JobManager      { return a.jobManager }
func (a *App) WsHub() *websocket.Hub             { return a.wsHub }

// Prober and Pruner satisfy jobs.JobContext.
func (a *App) Prober() jobs.SessionProber { return a.session }
func (a *App) Pruner() jobs.MoviePruner   { return a.store }
func (a *App) Events() jobs.Broadcaster   { return a.wsHub }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	a.cancel()
	a.wsHub.Close()
	if c, ok := a.creds.(interface{ Close() error }); ok {
		c.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
