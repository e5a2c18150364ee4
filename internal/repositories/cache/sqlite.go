package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/dbx"
	"github.com/fieldops/fieldsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) UpsertBatch(ctx context.Context, collection string, items []models.CachedEntity) error {
	query := `INSERT INTO cache_entries (collection, id, organization_id, payload)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET organization_id = excluded.organization_id,
				payload = excluded.payload
	`
	for _, item := range items {
		if _, err := r.db.ExecContext(ctx, query, collection, item.ID, item.OrganizationID, string(item.Payload)); err != nil {
			return fmt.Errorf("failed to upsert cache entry: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) scanEntries(rows *sql.Rows) ([]models.CachedEntity, error) {
	defer rows.Close()

	var result []models.CachedEntity
	for rows.Next() {
		var item models.CachedEntity
		var payload string
		if err := rows.Scan(&item.ID, &item.OrganizationID, &payload); err != nil {
			return nil, err
		}
		item.Payload = []byte(payload)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByCollection(ctx context.Context, collection string) ([]models.CachedEntity, error) {
	query := `SELECT id, organization_id, payload FROM cache_entries WHERE collection = ?`
	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entries: %w", err)
	}
	return r.scanEntries(rows)
}

func (r *SQLiteRepository) GetByOrganization(ctx context.Context, collection, organizationID string) ([]models.CachedEntity, error) {
	query := `SELECT id, organization_id, payload FROM cache_entries WHERE collection = ? AND organization_id = ?`
	rows, err := r.db.QueryContext(ctx, query, collection, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entries: %w", err)
	}
	return r.scanEntries(rows)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, collection, id string) (*models.CachedEntity, error) {
	query := `SELECT id, organization_id, payload FROM cache_entries WHERE collection = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, collection, id)

	var item models.CachedEntity
	var payload string
	if err := row.Scan(&item.ID, &item.OrganizationID, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	item.Payload = []byte(payload)
	return &item, nil
}

// GetByIndex matches a top-level payload field via json_extract. The field
// name is interpolated into the JSON path as a bound parameter, so arbitrary
// caller-supplied names are safe.
func (r *SQLiteRepository) GetByIndex(ctx context.Context, collection, field, value string) ([]models.CachedEntity, error) {
	query := `SELECT id, organization_id, payload FROM cache_entries
			WHERE collection = ? AND json_extract(payload, '$.' || ?) = ?`
	rows, err := r.db.QueryContext(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entries by index: %w", err)
	}
	return r.scanEntries(rows)
}

func (r *SQLiteRepository) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountByCollection(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT collection, COUNT(*) FROM cache_entries GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var collection string
		var n int64
		if err := rows.Scan(&collection, &n); err != nil {
			return nil, err
		}
		result[collection] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
