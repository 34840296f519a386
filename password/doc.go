// Package password implements the one-way hashing primitive used for passwords
// and refresh tokens.
//
// # Algorithms
//
// Argon2id (default) encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt is available for deployments whose existing records use it. Its cost is
// fixed when the hasher is built. Bcrypt reads at most 72 bytes, so callers
// hashing bearer tokens pass [TokenDigest] output rather than the raw token.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
