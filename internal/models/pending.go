package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PendingRecord is a user-authored write (cleaning, protocol execution,
// machine-hour reading) captured while offline or speculatively. It is keyed
// by a locally generated temp id until the server assigns an authoritative
// one.
//
// Invariants: exactly one record per temp id; ServerID is set iff Synced.
type PendingRecord struct {
	// TempID is the client-generated provisional identifier. It doubles as
	// the idempotency key sent to the remote service.
	TempID string

	// Collection names the entity type the record belongs to
	// (e.g. "cleanings", "executions", "machine_hours").
	Collection string

	// Payload is the domain payload; opaque to the engine.
	Payload json.RawMessage

	// Completions holds checklist sub-item completions keyed by sub-item id.
	Completions CompletionSet

	Synced    bool
	ServerID  string
	CreatedAt time.Time
	SyncedAt  *time.Time

	// LastError holds the most recent sync failure message. Terminal marks
	// it as requiring manual resolution; terminal records are not retried.
	LastError string
	Terminal  bool
}

// NewTempID generates a locally-unique provisional id: a millisecond time
// component plus a random suffix so two records created in the same
// millisecond on one device cannot collide.
func NewTempID() string {
	return fmt.Sprintf("p-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// SubItemCompletion is one checklist item completion inside a pending
// record's payload.
type SubItemCompletion struct {
	ItemID      string          `json:"itemId"`
	Done        bool            `json:"done"`
	CompletedAt time.Time       `json:"completedAt"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// CompletionSet is the typed in-memory shape of checklist completions: a
// mapping keyed by sub-item id, so a repeated completion for the same item
// replaces the previous one in O(1). The wire/storage shape is an array; see
// ParseCompletions and MarshalArray for the explicit conversion.
type CompletionSet map[string]SubItemCompletion

// ParseCompletions decodes the array shape stored at the boundary into the
// typed map. A nil or empty input yields an empty, usable set.
func ParseCompletions(data []byte) (CompletionSet, error) {
	cs := CompletionSet{}
	if len(data) == 0 {
		return cs, nil
	}
	var items []SubItemCompletion
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse completions: %w", err)
	}
	for _, item := range items {
		cs[item.ItemID] = item
	}
	return cs, nil
}

// Merge inserts the completion, replacing any prior completion for the same
// sub-item id.
func (cs CompletionSet) Merge(c SubItemCompletion) {
	cs[c.ItemID] = c
}

// MarshalArray serializes the set back to the array shape, ordered by item id
// so the output is deterministic.
func (cs CompletionSet) MarshalArray() ([]byte, error) {
	ids := make([]string, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]SubItemCompletion, 0, len(cs))
	for _, id := range ids {
		items = append(items, cs[id])
	}
	return json.Marshal(items)
}

// PendingMedia is a binary attachment tied to a PendingRecord by temp id.
// Rows are never deleted automatically; the synced flag is the only
// lifecycle transition, so evidence of an uploaded photo is never lost.
type PendingMedia struct {
	ID           int64
	RecordTempID string
	FileName     string
	ContentType  string
	Data         []byte
	Synced       bool
	CreatedAt    time.Time
}
