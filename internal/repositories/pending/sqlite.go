package pending

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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.PendingRecord) error {
	completions, err := rec.Completions.MarshalArray()
	if err != nil {
		return fmt.Errorf("failed to serialize completions: %w", err)
	}

	query := `INSERT INTO pending_records (temp_id, collection, payload, completions, synced, created_at)
			VALUES (?, ?, ?, ?, 0, ?)`
	_, err = r.db.ExecContext(ctx, query,
		rec.TempID, rec.Collection, string(rec.Payload), string(completions), rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert pending record: %w", err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (*models.PendingRecord, error) {
	rec := &models.PendingRecord{}
	var payload, completions string
	var serverID sql.NullString
	var createdAt int64
	var syncedAt sql.NullInt64

	err := scan(&rec.TempID, &rec.Collection, &payload, &completions,
		&rec.Synced, &serverID, &createdAt, &syncedAt, &rec.LastError, &rec.Terminal)
	if err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	cs, err := models.ParseCompletions([]byte(completions))
	if err != nil {
		return nil, err
	}
	rec.Completions = cs
	rec.ServerID = serverID.String
	rec.CreatedAt = time.UnixMilli(createdAt)
	if syncedAt.Valid {
		at := time.UnixMilli(syncedAt.Int64)
		rec.SyncedAt = &at
	}
	return rec, nil
}

const recordColumns = `temp_id, collection, payload, completions, synced, server_id, created_at, synced_at, last_error, terminal`

func (r *SQLiteRepository) GetByTempID(ctx context.Context, tempID string) (*models.PendingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM pending_records WHERE temp_id = ?`
	row := r.db.QueryRowContext(ctx, query, tempID)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) UpdateCompletions(ctx context.Context, tempID string, completions []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_records SET completions = ? WHERE temp_id = ?`, string(completions), tempID)
	if err != nil {
		return fmt.Errorf("failed to update completions: %w", err)
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

func (r *SQLiteRepository) ListUnsynced(ctx context.Context, collection string) ([]*models.PendingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM pending_records
			WHERE synced = 0 AND terminal = 0`
	args := []any{}
	if collection != "" {
		query += ` AND collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced records: %w", err)
	}
	return r.collect(rows)
}

func (r *SQLiteRepository) ListTerminal(ctx context.Context) ([]*models.PendingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM pending_records
			WHERE synced = 0 AND terminal = 1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select terminal records: %w", err)
	}
	return r.collect(rows)
}

func (r *SQLiteRepository) collect(rows *sql.Rows) ([]*models.PendingRecord, error) {
	defer rows.Close()

	var result []*models.PendingRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, tempID, serverID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_records
		SET synced = 1, server_id = ?, synced_at = ?, last_error = '', terminal = 0
		WHERE temp_id = ?
	`, serverID, at.UnixMilli(), tempID)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
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

func (r *SQLiteRepository) MarkFailed(ctx context.Context, tempID, message string, terminal bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_records SET last_error = ?, terminal = ? WHERE temp_id = ? AND synced = 0
	`, message, terminal, tempID)
	if err != nil {
		return fmt.Errorf("failed to mark record failed: %w", err)
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

func (r *SQLiteRepository) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_records WHERE synced = 1 AND synced_at < ?
	`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete synced records: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountUnsynced(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_records WHERE synced = 0 AND terminal = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountTerminal(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_records WHERE synced = 0 AND terminal = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count terminal records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_records`); err != nil {
		return fmt.Errorf("failed to clear pending records: %w", err)
	}
	return nil
}
