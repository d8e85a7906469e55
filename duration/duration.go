package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidDurationFormat is returned when the input is not <digits><unit>.
	ErrInvalidDurationFormat = errors.New("invalid duration format")
	// ErrUnsupportedDurationUnit is returned when the unit is not one of s, m, h, d.
	ErrUnsupportedDurationUnit = errors.New("unsupported duration unit")
)

var lifetimePattern = regexp.MustCompile(`^(\d+)([a-zA-Z]+)$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 60 * 60,
	"d": 24 * 60 * 60,
}

// Parse converts a lifetime such as "15m" or "30d" into whole seconds.
//
// Units are case-insensitive. Weeks, months and fractional values are rejected
// rather than approximated.
func Parse(text string) (int64, error) {
	match := lifetimePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, text)
	}

	unit := strings.ToLower(match[2])
	mult, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDurationUnit, unit)
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDurationFormat, text)
	}
	if value > math.MaxInt64/mult {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDurationFormat, text)
	}

	return value * mult, nil
}

// ParseDuration is Parse expressed as a time.Duration.
func ParseDuration(text string) (time.Duration, error) {
	seconds, err := Parse(text)
	if err != nil {
		return 0, err
	}
	if seconds > int64(math.MaxInt64/time.Second) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDurationFormat, text)
	}
	return time.Duration(seconds) * time.Second, nil
}

// Milliseconds returns the lifetime in milliseconds, the unit browsers use for
// cookie expiry arithmetic in client code.
func Milliseconds(text string) (int64, error) {
	d, err := ParseDuration(text)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}
