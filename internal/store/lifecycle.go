package store

import (
	"context"

	"github.com/fieldops/fieldsync/internal/dbx"
	"github.com/fieldops/fieldsync/internal/repositories/cache"
	"github.com/fieldops/fieldsync/internal/repositories/media"
	"github.com/fieldops/fieldsync/internal/repositories/pending"
	"github.com/fieldops/fieldsync/internal/repositories/queue"
)

// ClearAllCachedData wipes the reference-data caches and their freshness
// metadata while preserving pending work. Call it on login to force fresh
// reference data for the new session.
func (s *Store) ClearAllCachedData(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := cache.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return cache.NewSQLiteMetadataRepository(tx).Clear(ctx)
	})
}

// ClearAllOfflineData wipes everything, including unsynced user work and the
// sync queue. Destructive; only the full device reset path calls it.
func (s *Store) ClearAllOfflineData(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := cache.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := cache.NewSQLiteMetadataRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := pending.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := media.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return queue.NewSQLiteRepository(tx).Clear(ctx)
	})
}
