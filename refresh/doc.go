// Package refresh tracks which refresh tokens are still redeemable.
//
// A refresh token is only accepted while its jti is recorded here. Rotation
// removes the old jti and records the new one; logout and password changes
// drop the entries of a user.
//
// # Redis layout
//
//	refresh_token:<jti>    -> user id, TTL = refresh token lifetime
//	user_tokens:<userID>   -> set of jtis, TTL refreshed on every Record
//
// # What this package must NOT do
//
//   - Parse or verify tokens. Callers pass the jti of an already verified token.
//   - Decide rotation policy.
package refresh
