// Package goSession is a token-lifecycle engine: login, registration,
// rotating refresh tokens, revocation and access-token authentication on top
// of a pluggable user store.
//
// Each user has one refresh lineage. The store keeps the hash of the latest
// refresh token and a monotonically increasing token version; every token
// embeds the version it was minted at. Rotation is a compare-and-set on that
// version, so of two concurrent refreshes with the same token exactly one can
// win, and any rejected refresh revokes the session.
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], sentinel
// errors and value types. Flow orchestration lives in internal/flows, the
// Redis throttles in internal/rate and audit delivery in internal/audit.
// Storage backends live under store/ and implement [store.Store].
//
// # What this package must NOT do
//
//   - Read secrets or expiries from the environment.
//   - Hold per-user locks; per-user consistency is the store's atomic writes.
//   - Leak store failure details through error messages (see [StoreError]).
package goSession
