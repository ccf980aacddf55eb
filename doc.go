// Package loginGuard implements a Redis-backed login guard: credential
// login with per-email attempt throttling and temporary bans, a CAPTCHA
// challenge band, opaque server-side sessions with a double-submit CSRF
// token, one-time verification tokens for first-login password change,
// and advisory device fingerprint anomaly detection.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Redis layout
//
//	loginAttempts:<email>   failed attempt counter, 900s TTL reset on each failure
//	bannedUser:<email>      "true", 1h TTL
//	session:<id>            JSON session record, 1h sliding TTL
//	verifyToken:<token>     JSON {"userId"}, 30m TTL, deleted on redemption
//
// All prefixes and durations come from [Config]; the layout above is
// [DefaultConfig].
//
// # Errors
//
// Every operation returns an *[Error] whose [ErrorKind] maps onto a
// transport status. Internal failures carry a generic message; the cause is
// reachable through errors.Unwrap but is never meant for the client.
//
// User records live behind [CredentialStore]; loginGuard never talks to the
// user database directly.
package loginGuard
