// Package audit implements async event dispatching for login, session and
// verification outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, email, IP, metadata.
//
// This package owns event buffering and sink delivery. Which events are
// emitted is decided by the Engine.
package audit
