package media

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/dbx"
	"github.com/fieldops/fieldsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.PendingMedia) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_media (record_temp_id, file_name, content_type, data, synced, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, m.RecordTempID, m.FileName, m.ContentType, m.Data, m.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to insert pending media: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get media id: %w", err)
	}
	return id, nil
}

const mediaColumns = `id, record_temp_id, file_name, content_type, data, synced, created_at`

func scanMedia(scan func(dest ...any) error) (*models.PendingMedia, error) {
	m := &models.PendingMedia{}
	var createdAt int64
	err := scan(&m.ID, &m.RecordTempID, &m.FileName, &m.ContentType, &m.Data, &m.Synced, &createdAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdAt)
	return m, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.PendingMedia, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM pending_media WHERE id = ?`, id)
	m, err := scanMedia(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending media: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListByRecord(ctx context.Context, recordTempID string) ([]*models.PendingMedia, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM pending_media WHERE record_temp_id = ? ORDER BY id ASC`, recordTempID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	return r.collect(rows)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]*models.PendingMedia, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM pending_media WHERE synced = 0 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced media: %w", err)
	}
	return r.collect(rows)
}

func (r *SQLiteRepository) collect(rows *sql.Rows) ([]*models.PendingMedia, error) {
	defer rows.Close()

	var result []*models.PendingMedia
	for rows.Next() {
		m, err := scanMedia(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_media SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark media synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CountUnsynced(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_media WHERE synced = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced media: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_media`); err != nil {
		return fmt.Errorf("failed to clear pending media: %w", err)
	}
	return nil
}
