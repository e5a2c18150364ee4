package cache

import (
	"context"

	"github.com/fieldops/fieldsync/internal/models"
)

// Repository describes storage operations for reference-data cache entries.
// Implementations are backed by the local SQLite database. Scoping decisions
// (which organization may see what) live in the service layer; the repository
// only exposes the filters the service needs.
type Repository interface {
	// UpsertBatch inserts or overwrites entries by (collection, id). Callers
	// wanting all-or-nothing semantics run it inside dbx.WithTx.
	UpsertBatch(ctx context.Context, collection string, items []models.CachedEntity) error

	// GetByCollection returns every entry of a collection, unfiltered.
	GetByCollection(ctx context.Context, collection string) ([]models.CachedEntity, error)

	// GetByOrganization returns the entries of a collection owned by one
	// organization.
	GetByOrganization(ctx context.Context, collection, organizationID string) ([]models.CachedEntity, error)

	// GetByID returns a single entry or common.ErrNotFound.
	GetByID(ctx context.Context, collection, id string) (*models.CachedEntity, error)

	// GetByIndex returns entries whose payload field equals the given value.
	GetByIndex(ctx context.Context, collection, field, value string) ([]models.CachedEntity, error)

	// DeleteCollection wipes one collection.
	DeleteCollection(ctx context.Context, collection string) error

	// Clear wipes every cached entry.
	Clear(ctx context.Context) error

	// CountByCollection returns per-collection entry counts for diagnostics.
	CountByCollection(ctx context.Context) (map[string]int64, error)
}

// MetadataRepository tracks per-scope freshness metadata. A row exists iff at
// least one cache write has occurred for that scope since the last clear.
type MetadataRepository interface {
	// Upsert records (or refreshes) the last-refresh time for a scope.
	Upsert(ctx context.Context, m models.CacheMetadata) error

	// Get returns the metadata row for a scope or common.ErrNotFound.
	Get(ctx context.Context, collection, userID, organizationID string) (*models.CacheMetadata, error)

	// Delete removes the metadata marker for one scope.
	Delete(ctx context.Context, collection, userID, organizationID string) error

	// DeleteByCollection removes every scope's marker for a collection.
	DeleteByCollection(ctx context.Context, collection string) error

	// Clear removes all metadata.
	Clear(ctx context.Context) error
}
