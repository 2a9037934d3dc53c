package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/config"
	"github.com/relwatch/relwatch/internal/coverart"
	"github.com/relwatch/relwatch/internal/handlers"
	"github.com/relwatch/relwatch/internal/lastfm"
	"github.com/relwatch/relwatch/internal/middleware"
	"github.com/relwatch/relwatch/internal/migration"
	"github.com/relwatch/relwatch/internal/musicbrainz"
	"github.com/relwatch/relwatch/internal/notify"
	"github.com/relwatch/relwatch/internal/ratelimit"
	"github.com/relwatch/relwatch/internal/reconcile"
	"github.com/relwatch/relwatch/internal/repository"
	"github.com/relwatch/relwatch/internal/routes"
	"github.com/relwatch/relwatch/internal/sweep"
	"github.com/relwatch/relwatch/internal/temporal"
	"github.com/relwatch/relwatch/internal/temporal/activities"
	"github.com/relwatch/relwatch/internal/temporal/workflows"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger

	artistRepo       repository.ArtistRepository
	releaseRepo      repository.ReleaseGroupRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository

	store      *reconcile.Store
	reconciler *reconcile.Reconciler
	importer   *reconcile.LastfmImporter
	sweeper    *sweep.Sweeper
	tokens     *notify.UnsubscribeTokens
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := temporal.NewTemporalAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		Logger: temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	// Create the application instance and wire the service graph.
	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,
	}
	app.initServices(logger)

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)

	// Register the periodic sweep schedules on the task queue.
	app.startSweepSchedules(logger)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initServices builds the repositories, catalog clients and domain services.
func (app *application) initServices(logger zerolog.Logger) {
	cfg := app.config

	app.artistRepo = repository.NewArtistRepository(app.db)
	app.releaseRepo = repository.NewReleaseGroupRepository(app.db)
	app.userRepo = repository.NewUserRepository(app.db)
	app.notificationRepo = repository.NewNotificationRepository(app.db)

	// One limiter for all MusicBrainz traffic, API and worker alike.
	limiter := ratelimit.New(cfg.MusicBrainz.RequestInterval)
	mbClient := musicbrainz.NewClient(cfg.MusicBrainz.BaseURL, cfg.MusicBrainz.UserAgent, limiter, logger)
	lfmClient := lastfm.NewClient(cfg.Lastfm.BaseURL, cfg.Lastfm.APIKey, logger)
	resolver := coverart.NewResolver(cfg.CoverArt.ArchiveURL, cfg.CoverArt.PlaceholderURL, mbClient, lfmClient, logger)

	mailer, err := notify.NewSMTPMailer(cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure release mailer")
	}
	app.tokens = notify.NewUnsubscribeTokens(cfg.Email.UnsubscribeSecret)
	dispatcher := notify.NewDispatcher(app.userRepo, app.notificationRepo, mailer, app.tokens, cfg.Email.UnsubscribeURLFormat, logger)

	app.store = reconcile.NewStore(app.artistRepo, app.releaseRepo, mbClient, logger)
	app.reconciler = reconcile.NewReconciler(
		app.store,
		app.artistRepo,
		app.releaseRepo,
		mbClient,
		dispatcher,
		cfg.MusicBrainz.PageSize,
		cfg.MusicBrainz.CheckInterval,
		logger,
	)
	app.importer = reconcile.NewLastfmImporter(app.store, app.userRepo, lfmClient, logger)
	app.sweeper = sweep.NewSweeper(app.artistRepo, app.releaseRepo, app.reconciler, resolver, cfg.CoverArt.CheckInterval, logger)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	artistHandler := handlers.NewArtistHandler(app.store, app.artistRepo, app.userRepo, app.temporalClient, logger)
	releaseHandler := handlers.NewReleaseHandler(app.artistRepo, app.releaseRepo, app.userRepo, logger)
	userHandler := handlers.NewUserHandler(app.userRepo, app.tokens, app.temporalClient, logger)

	return routes.NewRouter(artistHandler, releaseHandler, userHandler)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Reconciler: app.reconciler,
		Importer:   app.importer,
		Sweeper:    app.sweeper,
		Logger:     logger,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.ReconcileArtistWorkflow)
	w.RegisterWorkflow(workflows.ReleaseSweepWorkflow)
	w.RegisterWorkflow(workflows.CoverArtSweepWorkflow)
	w.RegisterWorkflow(workflows.LastfmImportWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startSweepSchedules registers the two cron-driven sweep workflows. The
// fixed workflow IDs make the calls idempotent across restarts; a schedule
// that is already running is left alone.
func (app *application) startSweepSchedules(logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schedules := []struct {
		id       string
		cron     string
		workflow interface{}
	}{
		{temporal.ReleaseSweepWorkflowID, app.config.Sweep.ReleaseCron, workflows.ReleaseSweepWorkflow},
		{temporal.CoverArtSweepWorkflowID, app.config.Sweep.CoverArtCron, workflows.CoverArtSweepWorkflow},
	}
	for _, s := range schedules {
		opts := tc.StartWorkflowOptions{
			ID:           s.id,
			TaskQueue:    temporal.TaskQueueName,
			CronSchedule: s.cron,
		}
		if _, err := app.temporalClient.ExecuteWorkflow(ctx, opts, s.workflow); err != nil {
			logger.Warn().Err(err).Str("workflow", s.id).Msg("sweep schedule not started; may already be running")
			continue
		}
		logger.Info().Str("workflow", s.id).Str("cron", s.cron).Msg("sweep schedule registered")
	}
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
