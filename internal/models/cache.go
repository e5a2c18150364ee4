package models

import (
	"encoding/json"
	"time"
)

// CachedEntity is a reference-data record (machine, part, protocol, site,
// user) mirrored from the server. The payload is opaque to the engine; only
// the server id and owning organization matter for scoping and upserts.
// Entities are overwritten wholesale on each successful fetch and never
// mutated locally.
type CachedEntity struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	Payload        json.RawMessage `json:"payload"`
}

// CacheMetadata records when a collection was last refreshed for one
// (collection, user, organization) scope. A row exists iff at least one cache
// write happened for that scope since the last clear.
type CacheMetadata struct {
	Collection      string
	UserID          string
	OrganizationID  string
	LastRefreshedAt time.Time
}

// Stale reports whether the recorded refresh time is older than maxAge.
// The comparison runs at millisecond granularity, matching the stored
// precision, so a zero max age still counts a write from the same
// millisecond as fresh.
func (m CacheMetadata) Stale(now time.Time, maxAge time.Duration) bool {
	return now.UnixMilli()-m.LastRefreshedAt.UnixMilli() > maxAge.Milliseconds()
}
