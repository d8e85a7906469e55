// Package goSession issues and verifies cookie-borne session credentials: a
// short-lived access JWT, a long-lived refresh JWT, and a Redis revocation
// record that joins the two and can be deleted to end the session.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config] and
// the value types ([AuthResult], [TokenPair], [MetricsSnapshot]). Flow
// orchestration, session id generation and the issuance throttle live under
// internal/. Token signing lives in package jwt and the Redis store in package
// session; both are usable on their own.
//
// # What this package must NOT do
//
//   - Expose why a verification failed. Callers see StatusUnauthorized only;
//     the reason goes to the logger and the audit sink.
//   - Grant access when the revocation store cannot be reached.
//   - Perform I/O during construction other than what Build needs.
//
// # Performance contract
//
// Verify with a valid access token performs no store round-trip. A refresh
// costs one atomic store evaluation; Issue costs one write plus an optional
// delete of the replaced session.
package goSession
