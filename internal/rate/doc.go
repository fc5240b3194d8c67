// Package rate provides Redis-backed fixed-window counters used to throttle
// code delivery, code verification, signup, login and refresh.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys are "rl:<bucket>:<id>",
// for example "rl:email_send:203.0.113.7" or "rl:login_email:a@x.com".
//
// # What this package must NOT do
//
//   - Decide which identifier a flow is throttled on (the engine does).
//   - Fail open: a Redis error is returned, never treated as "allowed".
package rate
