// Package httpapi exposes loginGuard over HTTP under /auth using
// gorilla/mux. Session, CSRF and verification state travel in cookies;
// errors are rendered with middleware.WriteError.
package httpapi
