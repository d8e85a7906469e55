// Package jwt signs and verifies the access and refresh tokens used by goSession.
//
// Both token classes are HS256 JWTs signed with independent secrets. Every token
// carries a typ claim ("access" or "refresh") and a random jti, so tokens issued
// for the same user in the same second remain distinct. Verification checks the
// signature before any claim, and failures are reported as exactly one of
// [ErrMalformed], [ErrInvalidSignature] or [ErrExpired].
//
// # Architecture boundaries
//
// The package is pure computation: no I/O, no storage, no logging. The clock is
// injected through [Config].Now.
//
// # What this package must NOT do
//
//   - Consult the revocation store. A valid refresh token is necessary but not
//     sufficient for rotation.
//   - Accept algorithms other than HS256.
package jwt
