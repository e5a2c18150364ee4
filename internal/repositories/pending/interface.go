package pending

import (
	"context"
	"time"

	"github.com/fieldops/fieldsync/internal/models"
)

// Repository describes storage operations for offline-authored pending
// records. Implementations are backed by the local SQLite database.
type Repository interface {
	// Insert stores a new record under its temp id.
	Insert(ctx context.Context, rec *models.PendingRecord) error

	// GetByTempID returns a record or common.ErrNotFound.
	GetByTempID(ctx context.Context, tempID string) (*models.PendingRecord, error)

	// UpdateCompletions overwrites the serialized checklist completions of a
	// record. Returns common.ErrNotFound when the temp id is unknown.
	UpdateCompletions(ctx context.Context, tempID string, completions []byte) error

	// ListUnsynced returns records with synced=false and no terminal error,
	// oldest first. An empty collection matches every collection.
	ListUnsynced(ctx context.Context, collection string) ([]*models.PendingRecord, error)

	// MarkSynced is the single reconciliation point: it sets synced=true,
	// stores the server-assigned id and stamps the sync time.
	MarkSynced(ctx context.Context, tempID, serverID string, at time.Time) error

	// MarkFailed records the latest sync failure. Terminal failures are
	// excluded from ListUnsynced until resolved manually.
	MarkFailed(ctx context.Context, tempID, message string, terminal bool) error

	// ListTerminal returns records parked with a terminal error.
	ListTerminal(ctx context.Context) ([]*models.PendingRecord, error)

	// DeleteSyncedBefore removes records with synced=true and a sync time
	// older than cutoff, returning how many were removed. Unsynced records
	// are never touched.
	DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountUnsynced and CountTerminal feed the UI summary.
	CountUnsynced(ctx context.Context) (int64, error)
	CountTerminal(ctx context.Context) (int64, error)

	// Clear wipes all pending records, including unsynced ones. Only the
	// full-device-reset path calls this.
	Clear(ctx context.Context) error
}
