// Package common contains shared constants and sentinel errors used across
// fieldsync components.
package common

// IdempotencyKeyHeader is the HTTP header carrying the client-generated
// correlation id on outbound create/update requests. The remote service
// dedupes resubmissions by this value.
const IdempotencyKeyHeader = "Idempotency-Key"
