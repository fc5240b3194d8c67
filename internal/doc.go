// Package internal holds helpers private to accountauth, currently secure
// verification code generation.
//
// # Sub-packages
//
//   - accounts: Postgres and in-memory account repositories
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - mask: log redaction for emails, tokens and IPs
//   - migrate: embedded goose migrations
//   - pg: pgx pool plumbing
//   - rate: Redis fixed-window rate limits
//   - security: startup security posture report
package internal
