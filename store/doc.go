// Package store defines the user-record contract consumed by the session engine.
//
// A [Store] owns user records: profile fields, the password hash, and the two
// session fields (token version and refresh-token hash). Implementations live in
// sub-packages: memory, redisstore, postgres, and natsstore (a request/reply client
// for a remote store).
//
// # Architecture boundaries
//
// Session fields are only ever written through [Store.SetSession] (compare-and-set on
// the token version) and [Store.Revoke] (atomic increment-and-clear). The engine never
// writes them with a read-then-write sequence.
//
// # What this package must NOT do
//
//   - Import goSession or any flow package.
//   - Interpret tokens or compare password hashes.
//   - Retry failed writes: a lost compare-and-set is reported, never replayed.
package store
