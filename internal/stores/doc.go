// Package stores provides Redis-backed, short-lived record stores for
// security-sensitive authentication flows.
//
// # Design
//
// [VerifyTokenStore] persists a JSON record under a random token with a TTL.
// Consumption is a single Lua GET+DEL so a token is handed out at most once,
// even when redemptions race.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient
// records. It does NOT generate tokens or make authentication decisions.
//
// # What this package must NOT do
//
//   - Import loginGuard or any sibling internal package.
//   - Log or expose token values.
package stores
