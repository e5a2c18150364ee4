package models

import (
	"encoding/json"
	"time"
)

// QueueStatus is the lifecycle state of a queued outbound operation.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusInFlight QueueStatus = "in_flight"
	QueueStatusFailed   QueueStatus = "failed"
	QueueStatusDone     QueueStatus = "done"
)

// QueueItem is a generic outbound operation wanting at-least-once delivery
// outside the pending-record flow (e.g. a retried update against an entity
// that already has a server id). The operation descriptor is opaque to the
// engine.
type QueueItem struct {
	ID          int64
	Operation   json.RawMessage
	Status      QueueStatus
	Timestamp   time.Time
	RetryCount  int
	LastAttempt *time.Time
	Error       string
}

// QueueOperation is the conventional descriptor shape stored in a QueueItem.
// Callers are free to store anything JSON; the HTTP remote understands this
// one.
type QueueOperation struct {
	Method     string          `json:"method"`
	Collection string          `json:"collection"`
	EntityID   string          `json:"entityId,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}
