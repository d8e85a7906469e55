// Package rate provides the Redis-backed fixed-window counters behind the
// optional per-user issuance throttle.
//
// # Window semantics
//
// Fixed-window counters: one Lua evaluation runs INCR, sets PEXPIRE on the
// first hit and reports the time left in the window. Counters live under
// Config.KeyPrefix ("ai:" by default) followed by the user id.
//
// # What this package must NOT do
//
//   - Decide what a rate-limited caller sees; the Engine maps ErrRateLimited.
//   - Be imported outside the goSession module.
package rate
