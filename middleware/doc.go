// Package middleware adapts goSession.Engine to net/http.
//
// [Guard] reads the Authorization bearer token, calls Engine.Authenticate and
// injects the verified [goSession.Identity] into the request context. Every
// decision is the engine's; the guard only maps rejection to 401.
//
// [ClientIP] attaches the caller address so the login throttle can key by IP.
package middleware
