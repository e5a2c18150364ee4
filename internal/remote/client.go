// Package remote abstracts the backend REST service. The engine only needs
// create/update calls returning server-assigned identifiers; everything else
// about the API (validation, permissions, stock arithmetic) is the server's
// business. Implementations must be idempotent per client-supplied
// correlation key, since the orchestrator may resubmit after a crash.
package remote

import (
	"context"
	"encoding/json"

	"github.com/fieldops/fieldsync/internal/models"
)

// Client is the remote service boundary used by the sync orchestrator and the
// cache refresh path.
type Client interface {
	// Ping probes server reachability.
	Ping(ctx context.Context) error

	// FetchCollection pulls the current reference data of one collection for
	// the given scope.
	FetchCollection(ctx context.Context, collection string, scope models.Scope) ([]models.CachedEntity, error)

	// CreateRecord submits an offline-authored record and returns the
	// server-assigned identifier. The idempotency key (the record's temp id)
	// lets the server ignore duplicate resubmission.
	CreateRecord(ctx context.Context, collection string, body json.RawMessage, idempotencyKey string) (string, error)

	// Execute performs a generic queued operation.
	Execute(ctx context.Context, op models.QueueOperation, idempotencyKey string) error

	// UploadMedia uploads one attachment for an already-created record.
	UploadMedia(ctx context.Context, serverRecordID string, m *models.PendingMedia) error

	Close() error
}
