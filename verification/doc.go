// Package verification stores short-lived verification codes keyed by an
// identifier such as an email address.
//
// Three backends satisfy [Store]: [RedisStore] (fast, native expiry),
// [PostgresStore] (durable, explicit expires_at column) and [MemoryStore]
// (single process, for development and tests). [FailoverStore] composes a
// primary and a secondary backend behind the same interface.
//
// # Contract
//
//   - Save replaces any live entry for the key and restarts its expiry window.
//   - Find treats expired entries as absent.
//   - Delete is idempotent.
//   - ValidateAndDelete consumes the entry only when the candidate matches
//     exactly. A mismatch leaves the entry untouched. Concurrent calls for the
//     same key succeed at most once.
//
// Backend failures wrap [ErrUnavailable]. A mismatch or a missing entry is
// never an error. Stores implementing [Consumer] also tell the two apart,
// which [FailoverStore] relies on: only a missing entry or a failure on the
// primary sends validation to the secondary.
//
// # What this package must NOT do
//
//   - Generate codes or decide their format.
//   - Cache entries in process memory outside [MemoryStore].
//   - Log raw keys or codes.
package verification
