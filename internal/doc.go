// Package internal contains helper utilities that are intentionally private to loginGuard,
// including secure random generation and device fingerprint helpers.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: attempt counter and ban gate
//   - rate: Redis counter and flag primitives
//   - stores: one-time verify token store
//
// # What this package must NOT do
//
//   - Export types that appear in the public loginGuard API.
//   - Be imported by any package outside the loginGuard module.
package internal
