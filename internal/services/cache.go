package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/dbx"
	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/fieldops/fieldsync/internal/remote"
	"github.com/fieldops/fieldsync/internal/repositories/cache"
	"github.com/fieldops/fieldsync/internal/store"
)

// CacheService is the reference-data cache manager together with its security
// scoping layer. Every read and write must carry a models.Scope; calls
// without one fail closed: writes are refused, reads return empty results.
// A shared device must never leak one organization's cache into another
// user's session, so refusal here is mandatory, not advisory.
type CacheService struct {
	db     *sql.DB
	cache  cache.Repository
	meta   cache.MetadataRepository
	remote remote.Client
	log    logging.Logger
}

func NewCacheService(st *store.Store, rc remote.Client, log logging.Logger) *CacheService {
	return &CacheService{
		db:     st.DB(),
		cache:  st.Cache,
		meta:   st.Metadata,
		remote: rc,
		log:    log,
	}
}

// CacheData bulk-upserts reference data for one collection. The batch is a
// single transaction: a crash mid-call applies all items or none. Refused
// without a valid scope.
//
// The freshness-metadata update afterwards is a non-critical path: a failure
// there is logged and swallowed, because losing a staleness marker only
// causes an extra refetch, never data loss.
func (s *CacheService) CacheData(ctx context.Context, scope models.Scope, collection string, items []models.CachedEntity) error {
	if !scope.Valid() {
		s.log.Warn(ctx, "cache write refused: missing user/organization scope", "collection", collection)
		return nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return cache.NewSQLiteRepository(tx).UpsertBatch(ctx, collection, items)
	})
	if err != nil {
		return fmt.Errorf("failed to cache %s: %w", collection, err)
	}

	m := models.CacheMetadata{
		Collection:      collection,
		UserID:          scope.UserID,
		OrganizationID:  scope.OrganizationID,
		LastRefreshedAt: time.Now(),
	}
	if err := s.meta.Upsert(ctx, m); err != nil {
		s.log.Warn(ctx, "failed to update cache metadata (non-critical)", "collection", collection, "error", err)
	}

	return nil
}

// GetCachedData returns the cached entries of a collection visible to the
// scope. Without a valid scope it returns an empty slice; with one, entries
// are filtered to the scope's organization unless the scope is global.
func (s *CacheService) GetCachedData(ctx context.Context, scope models.Scope, collection string) ([]models.CachedEntity, error) {
	if !scope.Valid() {
		s.log.Warn(ctx, "cache read refused: missing user/organization scope", "collection", collection)
		return []models.CachedEntity{}, nil
	}

	if scope.GlobalScope {
		return s.cache.GetByCollection(ctx, collection)
	}
	return s.cache.GetByOrganization(ctx, collection, scope.OrganizationID)
}

// GetCachedItem returns a single entry by server id.
func (s *CacheService) GetCachedItem(ctx context.Context, collection, id string) (*models.CachedEntity, error) {
	return s.cache.GetByID(ctx, collection, id)
}

// GetCachedItemsByIndex returns entries whose payload field equals value.
func (s *CacheService) GetCachedItemsByIndex(ctx context.Context, collection, field, value string) ([]models.CachedEntity, error) {
	return s.cache.GetByIndex(ctx, collection, field, value)
}

// ClearCache drops cached state for a collection. With a scope it only
// removes that scope's freshness marker, forcing the next staleness check to
// report stale; without one it wipes the whole collection (the logout path).
func (s *CacheService) ClearCache(ctx context.Context, collection string, scope *models.Scope) error {
	if scope != nil {
		return s.meta.Delete(ctx, collection, scope.UserID, scope.OrganizationID)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := cache.NewSQLiteRepository(tx).DeleteCollection(ctx, collection); err != nil {
			return err
		}
		return cache.NewSQLiteMetadataRepository(tx).DeleteByCollection(ctx, collection)
	})
}

// IsCacheStale reports whether a collection needs a refresh for the scope.
// Absence of proof of freshness (no metadata, no scope, lookup failure) is
// treated as staleness, never as validity.
func (s *CacheService) IsCacheStale(ctx context.Context, scope models.Scope, collection string, maxAge time.Duration) bool {
	if !scope.Valid() {
		return true
	}

	m, err := s.meta.Get(ctx, collection, scope.UserID, scope.OrganizationID)
	if err != nil {
		return true
	}
	return m.Stale(time.Now(), maxAge)
}

// Refresh pulls a collection from the remote service and caches it for the
// scope. Used after login and whenever IsCacheStale says so. Unlike the local
// read/write paths, an invalid scope here is a hard error: the caller asked
// for a network round trip that cannot be attributed to any tenant.
func (s *CacheService) Refresh(ctx context.Context, scope models.Scope, collection string) (int, error) {
	if !scope.Valid() {
		return 0, common.ErrMissingScope
	}

	items, err := s.remote.FetchCollection(ctx, collection, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", collection, err)
	}

	if err := s.CacheData(ctx, scope, collection, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
