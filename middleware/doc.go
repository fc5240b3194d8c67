// Package middleware adapts accountauth.Engine to net/http.
//
// # Handlers
//
//   - [RequestContext] records the request start time and client IP that the
//     engine uses for response padding, rate limits and audit records.
//   - [Guard] authenticates every request outside the public path prefixes
//     and attaches the resulting Identity to the request context.
//   - [RequireRole] rejects authenticated requests whose role does not match.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Tell clients why a request was rejected beyond a uniform 401.
package middleware
