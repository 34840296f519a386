// Package rate implements the Redis fixed-window throttles behind login and
// refresh.
//
// # Window semantics
//
// INCR plus EXPIRE NX in one MULTI: the first hit starts the window. Keys:
//   - <prefix>:rl:login:e:<email>  failed logins per email
//   - <prefix>:rl:login:ip:<ip>    failed logins per client IP
//   - <prefix>:rl:refresh:<userID> refresh calls per user
//
// Login counts only failures and is reset on success; refresh counts every call.
package rate
