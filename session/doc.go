// Package session provides Redis-backed session persistence.
//
// # Encoding
//
// Sessions are stored as JSON objects {userId, userRole, ip, userAgent,
// csrfToken} so other services sharing the Redis instance can read them.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It does NOT
// generate identifiers, compare CSRF tokens, or enforce authentication policy; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import loginGuard (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store plaintext passwords in [Session] fields.
package session
