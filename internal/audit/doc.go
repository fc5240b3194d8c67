// Package audit relays security events (logins, code deliveries, token
// revocations, failover) to a pluggable sink without blocking request paths.
//
// # Components
//
//   - [Event]: one record. Emails are masked before they get here.
//   - [Sink]: consumer. Channel, JSON-lines writer, zap logger and no-op sinks ship here.
//   - [Dispatcher]: buffered async relay, drop-if-full or block-if-full.
//
// # What this package must NOT do
//
//   - Decide which events are emitted.
//   - Import the root package.
package audit
