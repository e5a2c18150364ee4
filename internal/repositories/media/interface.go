package media

import (
	"context"

	"github.com/fieldops/fieldsync/internal/models"
)

// Repository describes storage operations for pending media attachments.
// Media rows are flagged synced but never deleted automatically, so evidence
// of an uploaded attachment survives retention sweeps.
type Repository interface {
	// Insert stores a new attachment and returns its autoincrement id.
	Insert(ctx context.Context, m *models.PendingMedia) (int64, error)

	// GetByID returns an attachment or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.PendingMedia, error)

	// ListByRecord returns every attachment of a record, oldest first.
	ListByRecord(ctx context.Context, recordTempID string) ([]*models.PendingMedia, error)

	// ListUnsynced returns every attachment not yet uploaded, oldest first.
	ListUnsynced(ctx context.Context) ([]*models.PendingMedia, error)

	// MarkSynced flags an attachment as uploaded.
	MarkSynced(ctx context.Context, id int64) error

	// CountUnsynced feeds the UI summary.
	CountUnsynced(ctx context.Context) (int64, error)

	// Clear wipes all media rows. Only the full-device-reset path calls this.
	Clear(ctx context.Context) error
}
