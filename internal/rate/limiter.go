package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited means the user spent the window budget. The message
	// names the time left in the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any counter backend failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// defaultKeyPrefix namespaces issuance counters away from revocation records.
const defaultKeyPrefix = "ai:"

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIssueThrottle bool
	MaxIssuesPerWindow  int
	IssueWindow         time.Duration
	// KeyPrefix defaults to "ai:".
	KeyPrefix string
}

// Limiter enforces per-user credential issuance limits using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// hitScript counts one hit and starts the window on the first one, in a
// single evaluation so a counter can never be left without a TTL.
// Returns {count, remaining window in ms}.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckIssue records one issuance for userID. Once the window budget is spent
// it returns an error wrapping ErrRateLimited that names the time left.
func (l *Limiter) CheckIssue(ctx context.Context, userID string) error {
	if !l.config.EnableIssueThrottle {
		return nil
	}

	res, err := hitScript.Run(ctx, l.redis, []string{l.key(userID)}, l.config.IssueWindow.Milliseconds()).Int64Slice()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("%w: unexpected script reply %v", ErrRedisUnavailable, res)
	}

	if count, remaining := res[0], time.Duration(res[1])*time.Millisecond; count > int64(l.config.MaxIssuesPerWindow) {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, remaining)
	}
	return nil
}

// IssueAttempts returns the issuance count of userID in the current window.
func (l *Limiter) IssueAttempts(ctx context.Context, userID string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(userID)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return max(count, 0), nil
}

// ResetIssue clears the issuance counter for userID.
func (l *Limiter) ResetIssue(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(userID string) string {
	return l.config.KeyPrefix + userID
}
