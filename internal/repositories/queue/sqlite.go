package queue

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *SQLiteRepository) Enqueue(ctx context.Context, operation json.RawMessage) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (operation, status, timestamp, retry_count)
		VALUES (?, ?, ?, 0)
	`, string(operation), models.QueueStatusPending, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue item id: %w", err)
	}
	return id, nil
}

const itemColumns = `id, operation, status, timestamp, retry_count, last_attempt, error`

func scanItem(scan func(dest ...any) error) (*models.QueueItem, error) {
	item := &models.QueueItem{}
	var operation string
	var timestamp int64
	var lastAttempt sql.NullInt64

	err := scan(&item.ID, &operation, &item.Status, &timestamp, &item.RetryCount, &lastAttempt, &item.Error)
	if err != nil {
		return nil, err
	}

	item.Operation = []byte(operation)
	item.Timestamp = time.UnixMilli(timestamp)
	if lastAttempt.Valid {
		at := time.UnixMilli(lastAttempt.Int64)
		item.LastAttempt = &at
	}
	return item, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.QueueItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM sync_queue WHERE id = ?`, id)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM sync_queue WHERE status = ? ORDER BY timestamp ASC, id ASC
	`, models.QueueStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending queue items: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ? WHERE status = ?`,
		models.QueueStatusPending, models.QueueStatusInFlight)
	if err != nil {
		return 0, fmt.Errorf("failed to reset in_flight queue items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id int64, status models.QueueStatus, errMsg string) error {
	var res sql.Result
	var err error
	if errMsg != "" {
		res, err = r.db.ExecContext(ctx, `
			UPDATE sync_queue
			SET status = ?, error = ?, retry_count = retry_count + 1, last_attempt = ?
			WHERE id = ?
		`, status, errMsg, time.Now().UnixMilli(), id)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update queue item status: %w", err)
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

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
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

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to clear sync queue: %w", err)
	}
	return nil
}
