package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/dbx"
	"github.com/fieldops/fieldsync/internal/models"
)

// SQLiteMetadataRepository implements MetadataRepository. Refresh times are
// stored as unix milliseconds.
type SQLiteMetadataRepository struct {
	db dbx.DBTX
}

func NewSQLiteMetadataRepository(db dbx.DBTX) *SQLiteMetadataRepository {
	return &SQLiteMetadataRepository{db: db}
}

func (r *SQLiteMetadataRepository) Upsert(ctx context.Context, m models.CacheMetadata) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_metadata (collection, user_id, organization_id, last_refreshed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, user_id, organization_id) DO UPDATE SET last_refreshed_at = excluded.last_refreshed_at
	`, m.Collection, m.UserID, m.OrganizationID, m.LastRefreshedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert cache metadata: %w", err)
	}
	return nil
}

func (r *SQLiteMetadataRepository) Get(ctx context.Context, collection, userID, organizationID string) (*models.CacheMetadata, error) {
	var refreshedAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT last_refreshed_at FROM cache_metadata
		WHERE collection = ? AND user_id = ? AND organization_id = ?
	`, collection, userID, organizationID).Scan(&refreshedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache metadata: %w", err)
	}
	return &models.CacheMetadata{
		Collection:      collection,
		UserID:          userID,
		OrganizationID:  organizationID,
		LastRefreshedAt: time.UnixMilli(refreshedAt),
	}, nil
}

func (r *SQLiteMetadataRepository) Delete(ctx context.Context, collection, userID, organizationID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cache_metadata WHERE collection = ? AND user_id = ? AND organization_id = ?
	`, collection, userID, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete cache metadata: %w", err)
	}
	return nil
}

func (r *SQLiteMetadataRepository) DeleteByCollection(ctx context.Context, collection string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_metadata WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("failed to delete cache metadata for %s: %w", collection, err)
	}
	return nil
}

func (r *SQLiteMetadataRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_metadata`); err != nil {
		return fmt.Errorf("failed to clear cache metadata: %w", err)
	}
	return nil
}
