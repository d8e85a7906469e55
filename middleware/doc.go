// Package middleware adapts goSession.Engine to net/http: it reads the access
// and refresh cookies, calls Engine.Verify, and writes or clears cookies
// according to the outcome.
//
// # Gates
//
//   - [Gate]: full verification, refreshing expired access tokens.
//   - [RequireAccess]: access token only, no store round-trip.
//
// [SetAuthCookies] and [ClearAuthCookies] serve login and logout handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Authentication
// decisions are delegated to Engine.Verify.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
//   - Tell the client why a request was refused.
package middleware
