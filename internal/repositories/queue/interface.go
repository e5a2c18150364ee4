package queue

import (
	"context"
	"encoding/json"

	"github.com/fieldops/fieldsync/internal/models"
)

// Repository is the durable FIFO of generic outbound operations. Ordering is
// strict by enqueue timestamp; there is no priority reordering.
type Repository interface {
	// Enqueue appends an operation with status pending and returns its id.
	Enqueue(ctx context.Context, operation json.RawMessage) (int64, error)

	// Get returns one item or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.QueueItem, error)

	// ListPending returns items with status pending, timestamp ascending.
	ListPending(ctx context.Context) ([]*models.QueueItem, error)

	// ResetInFlight moves in_flight items back to pending and returns how
	// many were moved. A crash mid-attempt leaves items in_flight with no
	// owner; redelivery is safe because every attempt carries the same
	// idempotency key.
	ResetInFlight(ctx context.Context) (int64, error)

	// UpdateStatus transitions an item. A non-empty errMsg stamps the attempt
	// time, stores the message and increments the retry count.
	UpdateStatus(ctx context.Context, id int64, status models.QueueStatus, errMsg string) error

	// Remove deletes an item on terminal success.
	Remove(ctx context.Context, id int64) error

	// Count returns the total number of queued items for diagnostics.
	Count(ctx context.Context) (int64, error)

	// Clear wipes the queue. Only the full-device-reset path calls this.
	Clear(ctx context.Context) error
}
