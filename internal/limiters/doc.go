// Package limiters provides the login throttle built on top of the
// internal/rate primitives.
//
// # Limiters
//
//   - [AttemptTracker]: per-email failed-login counter with a rolling window.
//   - [BanGate]: per-email ban marker that replaces the counter once the
//     hard threshold is reached.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Thresholds
// are evaluated by the caller: limiters count and mark, they never decide
// whether a count means "challenge" or "ban".
//
// # What this package must NOT do
//
//   - Import loginGuard or any sibling internal package except internal/rate.
//   - Read-modify-write counters from Go; every change goes through INCR or DEL.
package limiters
