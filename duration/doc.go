// Package duration parses human-readable credential lifetimes ("15m", "30d") used in
// goSession configuration.
//
// Accepted units are s, m, h and d. Any other unit fails with
// [ErrUnsupportedDurationUnit]; input that is not <digits><unit> fails with
// [ErrInvalidDurationFormat]. Both are configuration-time errors and are expected to
// abort startup.
package duration
