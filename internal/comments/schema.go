package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"

	"siteapi/internal/database"
)

type migration struct {
	name string
	sql  string
}

// migrations only ever add. Every statement must be safe to repeat and safe to
// run from several cold-starting instances at once.
var migrations = []migration{
	{"create comments table", `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			post_id UUID NOT NULL,
			alias TEXT NOT NULL DEFAULT 'Anónimo',
			email TEXT,
			message TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			parent_id UUID,
			pinned_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"add parent_id", `ALTER TABLE comments ADD COLUMN IF NOT EXISTS parent_id UUID`},
	{"add pinned_at", `ALTER TABLE comments ADD COLUMN IF NOT EXISTS pinned_at TIMESTAMPTZ`},
	{"index post/created", `CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)`},
	{"index parent", `CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments (parent_id)`},
	{"index pinned", `CREATE INDEX IF NOT EXISTS idx_comments_pinned ON comments (pinned_at DESC NULLS LAST)`},
	{"index created", `CREATE INDEX IF NOT EXISTS idx_comments_created ON comments (created_at DESC)`},
	{"index post order", `CREATE INDEX IF NOT EXISTS idx_comments_post_order ON comments (post_id, pinned_at DESC NULLS LAST, created_at ASC)`},
	{"parent foreign key", `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint
				WHERE conname = 'comments_parent_id_fkey' AND conrelid = 'comments'::regclass
			) THEN
				ALTER TABLE comments
					ADD CONSTRAINT comments_parent_id_fkey
					FOREIGN KEY (parent_id) REFERENCES comments(id) ON DELETE CASCADE NOT VALID;
			END IF;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END
		$$`},
	// posts belongs to another handler and may not exist yet.
	{"post foreign key", `
		DO $$
		BEGIN
			IF to_regclass('posts') IS NOT NULL AND NOT EXISTS (
				SELECT 1 FROM pg_constraint
				WHERE conname = 'comments_post_id_fkey' AND conrelid = 'comments'::regclass
			) THEN
				ALTER TABLE comments
					ADD CONSTRAINT comments_post_id_fkey
					FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE NOT VALID;
			END IF;
		EXCEPTION WHEN duplicate_object OR undefined_table THEN NULL;
		END
		$$`},
}

// SQLSTATE codes raised when another instance won a DDL race.
var raceCodes = map[string]bool{
	"42P07": true, // duplicate_table
	"42710": true, // duplicate_object
	"42701": true, // duplicate_column
	"23505": true, // unique_violation on pg_type/pg_class during concurrent CREATE
}

// Migrator ensures the comments schema once per process. A failed run leaves
// it unready so the next request retries.
type Migrator struct {
	db     database.Querier
	logger *slog.Logger

	mu    sync.Mutex
	ready atomic.Bool
}

// NewMigrator creates a migrator over db.
func NewMigrator(db database.Querier, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, logger: logger}
}

// Ready reports whether EnsureSchema has completed in this process.
func (m *Migrator) Ready() bool {
	return m.ready.Load()
}

// EnsureSchema runs every migration unless a previous call already succeeded.
func (m *Migrator) EnsureSchema(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready.Load() {
		return nil
	}

	for _, mg := range migrations {
		if _, err := m.db.Exec(ctx, mg.sql); err != nil {
			if isRace(err) {
				m.logger.Debug("schema step already applied elsewhere", "step", mg.name, "error", err)
				continue
			}
			return fmt.Errorf("schema %s: %w", mg.name, err)
		}
	}

	m.ready.Store(true)
	m.logger.Info("comments schema ready")
	return nil
}

func isRace(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && raceCodes[pgErr.Code]
}
