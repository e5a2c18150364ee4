// Package store opens the durable local database, applies schema migrations
// and aggregates the repositories built on top of it. The handle is opened
// once at process start and threaded through all components; nothing in the
// engine holds the connection as module state.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldops/fieldsync/internal/repositories/cache"
	"github.com/fieldops/fieldsync/internal/repositories/media"
	"github.com/fieldops/fieldsync/internal/repositories/pending"
	"github.com/fieldops/fieldsync/internal/repositories/queue"
	"github.com/fieldops/fieldsync/internal/store/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store is the shared durable local store. All entity state is owned here;
// services receive a *Store and never open their own connections.
type Store struct {
	db *sql.DB

	Cache    cache.Repository
	Metadata cache.MetadataRepository
	Pending  pending.Repository
	Media    media.Repository
	Queue    queue.Repository
}

// RunMigrations applies the embedded goose migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn, migrates the
// schema and returns the repository aggregate.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Store{
		db:       db,
		Cache:    cache.NewSQLiteRepository(db),
		Metadata: cache.NewSQLiteMetadataRepository(db),
		Pending:  pending.NewSQLiteRepository(db),
		Media:    media.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
	}, nil
}

// DB exposes the underlying handle for transactional sequences via dbx.WithTx.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
