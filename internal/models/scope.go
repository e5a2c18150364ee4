// Package models defines the data types persisted by the fieldsync engine.
package models

// Scope is the per-call security context supplied by the session layer.
// Every reference-data read or write must carry one; the engine holds no
// implicit global session state.
type Scope struct {
	// UserID identifies the active user on this device.
	UserID string

	// OrganizationID identifies the tenant whose data may be seen.
	OrganizationID string

	// GlobalScope is true for roles allowed to see data across
	// organizations. It widens reads only, never writes.
	GlobalScope bool
}

// Valid reports whether the scope carries both identifiers required to
// persist or return tenant data.
func (s Scope) Valid() bool {
	return s.UserID != "" && s.OrganizationID != ""
}
