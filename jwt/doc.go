// Package jwt issues and verifies the HS256 access and refresh tokens that carry
// a user's session epoch.
//
// Each class is signed with its own secret and lifetime. Every token carries a
// random jti, so two tokens minted in the same second for the same user still
// differ byte for byte.
package jwt
