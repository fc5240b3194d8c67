// Package password hashes and checks account passwords with bcrypt and
// enforces the account password policy.
//
// # What this package must NOT do
//
//   - Store or log plaintext passwords.
//   - Normalize input. Passwords are hashed byte for byte as supplied.
package password
