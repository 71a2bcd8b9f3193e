package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/clock"
	"github.com/RubachokBoss/attempt-service/internal/config"
	"github.com/RubachokBoss/attempt-service/internal/database"
	"github.com/RubachokBoss/attempt-service/internal/delivery/httpd"
	"github.com/RubachokBoss/attempt-service/internal/middleware"
	"github.com/RubachokBoss/attempt-service/internal/repository"
	"github.com/RubachokBoss/attempt-service/internal/repository/memory"
	"github.com/RubachokBoss/attempt-service/internal/service"
	"github.com/RubachokBoss/attempt-service/internal/service/integration"
	"github.com/RubachokBoss/attempt-service/internal/worker"
)

type App struct {
	server   *http.Server
	logger   zerolog.Logger
	config   *config.Config
	db       *sql.DB
	pool     *worker.WorkerPool
	notifier integration.Notifier
	sweeper  *worker.DeadlineSweeper

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type repositories struct {
	attempts    repository.AttemptRepository
	assignments repository.AssignmentRepository
	memberships repository.MembershipRepository
	storage     httpd.Pinger
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	var db *sql.DB
	var repos repositories

	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		store := memory.NewDB()
		if err := seedMemory(store, cfg.Database.SeedFile, log); err != nil {
			return nil, err
		}
		repos = repositories{
			attempts:    memory.NewAttemptRepository(store),
			assignments: memory.NewAssignmentRepository(store),
			memberships: memory.NewMembershipRepository(store),
			storage:     store,
		}
	default:
		var err error
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Database connection established")

		repos = repositories{
			attempts:    repository.NewAttemptRepository(db, log),
			assignments: repository.NewAssignmentRepository(db, log),
			memberships: repository.NewMembershipRepository(db, log),
			storage:     repository.NewPostgresRepository(db, log),
		}
	}

	notifier := newNotifier(cfg.RabbitMQ, log)

	pool := worker.NewWorkerPool(cfg.Notifications.Workers, cfg.Notifications.QueueSize, log)
	dispatcher := worker.NewNotificationDispatcher(pool, notifier, log)

	clk := clock.Real{}

	attemptService := service.NewAttemptService(
		repos.attempts,
		repos.assignments,
		repos.memberships,
		dispatcher,
		clk,
		cfg.Notifications.LinkBaseURL,
		log,
	)

	var sweeper *worker.DeadlineSweeper
	if cfg.Sweeper.Enabled {
		sweeper = worker.NewDeadlineSweeper(
			repos.assignments,
			notifier,
			clk,
			cfg.Sweeper.Interval,
			cfg.Notifications.LinkBaseURL,
			log,
		)
	}

	handler := httpd.NewHandler(attemptService, repos.storage, pool, log)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Identity)
	router.Use(middleware.StructuredLogger(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:   server,
		logger:   log,
		config:   cfg,
		db:       db,
		pool:     pool,
		notifier: notifier,
		sweeper:  sweeper,
	}, nil
}

func seedMemory(store *memory.DB, path string, log zerolog.Logger) error {
	if path == "" {
		log.Warn().Msg("No seed file configured, in-memory storage starts empty")
		return nil
	}

	seed, err := memory.ReadSeed(path)
	if err != nil {
		return err
	}
	if err := seed.Apply(store, time.Now()); err != nil {
		return fmt.Errorf("failed to apply seed file: %w", err)
	}

	log.Info().
		Str("seed_file", path).
		Int("activities", len(seed.Activities)).
		Int("assignments", len(seed.Assignments)).
		Int("members", len(seed.Members)).
		Msg("In-memory storage seeded")
	return nil
}

// newNotifier falls back to logging notifications when the broker is disabled or unreachable.
func newNotifier(cfg config.RabbitMQConfig, log zerolog.Logger) integration.Notifier {
	if !cfg.Enabled {
		log.Info().Msg("RabbitMQ disabled, notifications are only logged")
		return integration.NewLogNotifier(log)
	}

	notifier, err := integration.NewRabbitMQNotifier(cfg.URL, cfg.Exchange, cfg.RoutingKey, cfg.QueueName, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ, notifications are only logged")
		return integration.NewLogNotifier(log)
	}
	return notifier
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.pool.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start worker pool")
		return err
	}

	if a.sweeper != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.sweeper.Run(ctx)
		}()
	}

	a.logger.Info().Msgf("Starting attempt service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down attempt service...")

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if err := a.pool.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	if err := a.notifier.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close notifier")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Attempt service stopped")
	return err
}
