// Package audit delivers engine audit events to a pluggable Sink.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: timestamp, type, user, IP, outcome and free-form metadata.
//
// The Engine decides which events to emit; this package only buffers and
// delivers them. It must not import goSession.
package audit
