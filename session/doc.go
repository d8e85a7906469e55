// Package session provides the Redis-backed revocation store for goSession.
//
// Every live refresh token names a session id; the record stored under
// prefix+sessionID holds the owning user id and expires with the token. A
// refresh token is only honoured while its record exists, so deleting the
// record revokes the session.
//
// # Rotation
//
// [Store.Rotate] consumes the old record and creates the new one inside a single
// Lua evaluation. Concurrent rotations of one session therefore have exactly one
// winner; every other caller observes [ErrSessionNotFound].
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) only. It does NOT interpret
// JWT tokens or decide whether a request is authenticated; those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Report a missing record as [ErrStoreUnavailable].
package session
