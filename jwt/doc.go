// Package jwt issues and verifies the HS256 access and refresh tokens used by
// accountauth. Both token types share one codec and differ only in their
// validity window and the tokenType claim.
//
// # Failure classification
//
// Verify never panics on hostile input. Every rejection matches exactly one of
// [ErrMalformed], [ErrBadSignature], [ErrExpired] or [ErrUnsupported] under
// errors.Is, so callers on the request path can branch without string checks.
//
// # What this package must NOT do
//
//   - Perform I/O. Revocation lives in package blacklist.
//   - Log tokens or the signing secret.
package jwt
