// Package database wraps the shared Postgres connection pool.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of the pool used by repositories. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service represents a service that interacts with a database.
type Service interface {
	Querier

	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string

	// Close terminates the pool.
	Close()
}

type service struct {
	*pgxpool.Pool
}

var _ Querier = (*pgxpool.Pool)(nil)

// New builds a pool for dsn. The pool connects lazily, so a warm serverless
// instance can reuse it across invocations.
func New(ctx context.Context, dsn string) (Service, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &service{Pool: pool}, nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	ps := s.Stat()
	stats["total_connections"] = strconv.Itoa(int(ps.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(ps.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(ps.AcquiredConns()))
	stats["acquire_count"] = strconv.FormatInt(ps.AcquireCount(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(ps.EmptyAcquireCount(), 10)

	if ps.AcquiredConns() >= ps.MaxConns() {
		stats["message"] = "The pool is exhausted."
	}

	return stats
}
