// Package middleware adapts loginGuard.Engine to net/http: client
// fingerprint capture, session and CSRF enforcement, per-IP request
// throttling and the JSON error envelope shared by every handler.
//
// Authentication decisions are delegated to the Engine. This package
// only translates cookies and headers into Engine calls and Engine errors
// into HTTP responses.
package middleware
