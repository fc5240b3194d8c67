// Package accountauth authenticates API requests and runs the account flows
// around them: verification codes, signup, login, refresh token rotation,
// logout and password reset.
//
// Access and refresh tokens are HS256 JWTs. Revoked token ids live in a Redis
// blacklist that is consulted on every request; when it cannot be reached the
// request is rejected. Verification codes are stored in Redis with a durable
// Postgres fallback and can be consumed exactly once.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// accountauth is the public surface. It exposes [Engine], [Builder], [Config],
// the error values and a few value types. Storage, rate limiting, audit
// dispatch and log masking live under internal/ or in the blacklist, refresh,
// verification, jwt, password and mail packages.
//
// # What this package must NOT do
//
//   - Log secrets, raw tokens, codes or unmasked email addresses.
//   - Tell callers whether an email is registered through Login or
//     RequestPasswordReset results.
//   - Accept a request when the blacklist cannot be checked.
package accountauth
