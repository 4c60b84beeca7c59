package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"siteapi/internal/auth"
	"siteapi/internal/cache"
	"siteapi/internal/comments"
	"siteapi/internal/config"
	"siteapi/internal/database"
	"siteapi/internal/kafka"
)

// App is the fully wired comments service.
type App struct {
	Handler http.Handler

	db       database.Service
	cache    cache.Cache
	producer *kafka.Producer
	logger   *slog.Logger
}

// Build connects the configured backends and assembles the HTTP handler.
// Redis and Kafka are optional: without Redis each process caches in memory,
// without Kafka no events are published.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	app := &App{db: db, logger: logger}

	app.cache, err = newCache(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := []comments.Option{
		comments.WithCache(app.cache),
		comments.WithLogger(logger),
	}

	if cfg.KafkaBrokers != "" {
		kcfg, err := kafka.NewConfig(cfg.KafkaBrokers, cfg.CommentTopic)
		if err != nil {
			app.Close()
			return nil, err
		}
		producer, err := kafka.NewProducer(kcfg, logger)
		if err != nil {
			// events are best-effort; the API stays up without them
			logger.Warn("kafka producer unavailable, events disabled", "error", err)
		} else {
			app.producer = producer
			opts = append(opts, comments.WithEvents(producer))
		}
	}

	migrator := comments.NewMigrator(db, logger)
	svc := comments.NewService(comments.NewRepository(db), migrator, opts...)

	app.Handler = New(db, svc, auth.NewGate(cfg.AdminToken), logger).RegisterRoutes()
	return app, nil
}

func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.RedisAddr != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err == nil {
			logger.Info("using redis cache", "addr", cfg.RedisAddr)
			return c, nil
		}
		logger.Warn("redis unavailable, falling back to memory cache", "addr", cfg.RedisAddr, "error", err)
	}

	c, err := cache.NewMemory(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return c, nil
}

// Close releases every backend held by the app.
func (a *App) Close() error {
	var errs []error
	if a.producer != nil {
		a.producer.Close()
	}
	if c, ok := a.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}
