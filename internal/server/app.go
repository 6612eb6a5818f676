// Package server wires storage, the claim service, the HTTP API and the
// maintenance scheduler together and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/config"
	"github.com/dmitrijs2005/claimkeeper/internal/server/events"
	"github.com/dmitrijs2005/claimkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/claimkeeper/internal/server/rest"
	"github.com/dmitrijs2005/claimkeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/claimkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// openDB is a seam for tests.
var openDB = repomanager.Open

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	registry  *prometheus.Registry
	publisher *events.WatermillPublisher
	claims    *services.ClaimService
}

func NewApp(c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, level)
	return newApp(context.Background(), c, logger, watermill.NewSlogLogger(logger.Slog()))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, wmLogger watermill.LoggerAdapter) (*App, error) {
	app := &App{config: c, logger: logger, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.NewClaimMetrics(app.registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	var manager repomanager.RepositoryManager
	if c.UsesMemoryStore() {
		store := memory.NewStore()
		if c.SeedFile != "" {
			n, err := store.LoadParticipantsFile(c.SeedFile)
			if err != nil {
				return nil, err
			}
			logger.Info(ctx, "participants seeded", "count", n, "file", c.SeedFile)
		}
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		manager = store
	} else {
		db, err := openDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		manager = repomanager.NewPostgresRepositoryManager()
		if err := manager.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		app.db = db
	}

	opts := []services.Option{services.WithLogger(logger), services.WithMetrics(m)}
	if c.RedisURL != "" {
		p, err := events.NewRedisStreamPublisher(c.RedisURL, c.EventsTopic, wmLogger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("event publisher init error: %w", err)
		}
		app.publisher = p
		opts = append(opts, services.WithEventPublisher(p))
	}

	app.claims = services.NewClaimService(app.db, manager, c, opts...)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.claims, app.config.SecretKey, app.config.TrustedProxies, app.registry)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startScheduler(ctx context.Context, cancelFunc context.CancelFunc) {
	s := scheduler.New(app.claims, scheduler.Config{
		RetentionDays:   app.config.RetentionDays,
		CleanupInterval: app.config.CleanupInterval,
		StatsInterval:   app.config.StatsInterval,
	}, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives, ctx is cancelled or one of
// the components fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	gin.SetMode(gin.ReleaseMode)
	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startScheduler(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error(context.Background(), "event publisher close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
	}
}
