// Package flows contains the orchestration behind every Engine operation.
//
// Each Run function takes the shared [Deps] by value and returns either a
// result or an error. RunRefresh returns a [RefreshResult] whose failure kind
// decides whether the session is revoked before the error reaches the caller.
//
// # Architecture boundaries
//
// Flows coordinate the user store, token issuer, hasher, throttles, audit and
// metrics hooks. They do NOT own any of these resources; ownership stays with
// the Engine, which also supplies the store wrapped in its timeout gateway.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Write session state other than through Store.SetSession and Store.Revoke.
package flows
