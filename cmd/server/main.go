// Package main implements the entry point for the async media server,
// which renders the browsable image grid and resolves its thumbnails
// asynchronously through a bounded worker pool.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"

	"github.com/seagrid/asyncmedia/internal/config"
	"github.com/seagrid/asyncmedia/internal/media"
	"github.com/seagrid/asyncmedia/internal/platform/logger"
	"github.com/seagrid/asyncmedia/internal/platform/postgres"
	"github.com/seagrid/asyncmedia/internal/platform/thumbnailer"
	"github.com/seagrid/asyncmedia/internal/task"
	"github.com/seagrid/asyncmedia/migrations"
)

// application holds the wired dependencies of the running server.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	batches  *media.Batches
	resolver *media.Resolver
	queue    *task.Queue
	pool     *task.WorkerPool
	urls     *media.URLCache
}

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		app.logger.Error("Server exited with error", "error", err)
	}
}

// initializeApp loads configuration and wires all application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	generator, err := thumbnailer.NewClient(cfg.Media.GeneratorURL, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnailer client: %w", err)
	}

	urls, err := media.NewURLCache(cfg.Media.URLCacheEntries, 0, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create URL cache: %w", err)
	}

	batches := media.NewBatches(cfg.Media.BatchTTL, appLogger)
	queue := task.NewQueue(cfg.Media.QueueSize, appLogger)
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{
		WorkerCount: cfg.Media.WorkerCount,
	}, appLogger)

	resolverCfg := media.DefaultResolverConfig()
	resolverCfg.MaxAttempts = cfg.Media.MaxAttempts
	resolverCfg.AttemptTimeout = cfg.Media.AttemptTimeout

	resolver := media.NewResolver(
		batches,
		queue,
		generator,
		postgres.NewJobStore(db, appLogger),
		urls,
		resolverCfg,
		appLogger,
	)

	pool.Start()
	resolver.Start()

	return &application{
		config:   cfg,
		logger:   appLogger,
		db:       db,
		batches:  batches,
		resolver: resolver,
		queue:    queue,
		pool:     pool,
		urls:     urls,
	}, nil
}

// openDatabase connects to Postgres and applies pending migrations.
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return db, nil
}

// cleanup tears components down in dependency order.
func (app *application) cleanup() {
	app.resolver.Stop()
	app.queue.Close()
	app.pool.Stop()
	app.urls.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
