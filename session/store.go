package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps every failure of the backing Redis deployment.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// ErrSessionNotFound is returned by Rotate when the session record is absent or
// belongs to a different user. Revoked, expired and already rotated sessions are
// deliberately indistinguishable.
var ErrSessionNotFound = errors.New("session not found")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRotated  int64 = 1
	rotateStatusMismatch int64 = 2
)

const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 2
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// Store is a Redis-backed revocation store. Each live session is a single key
// holding the owning user id, expiring together with the refresh token.
//
// Store is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	owned  bool
}

// NewStore wraps an existing client. The caller keeps ownership of the client
// and Close is a no-op.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

// Dial connects to the Redis deployment named by url (redis:// or rediss://),
// verifies it with PING and returns a Store that owns the connection.
func Dial(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Store{
		redis:  client,
		prefix: prefix,
		owned:  true,
	}, nil
}

// Client returns the underlying connection so that companions such as the
// issuance throttle can share it.
func (s *Store) Client() redis.UniversalClient {
	return s.redis
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Set creates or overwrites the record for key, resetting its TTL.
//
//	Performance: 1 Redis SET.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s", ttl)
	}
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the value stored under key. A missing key is reported through
// found=false, never as an error.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, true, nil
}

// Del removes key and reports how many records were removed (0 or 1).
// Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.Del(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Exists reports whether a live record is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of key, or 0 when it does not exist.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Rotate atomically consumes oldKey and creates newKey holding expectedValue.
// It succeeds only if oldKey exists and holds expectedValue; otherwise it
// returns ErrSessionNotFound and leaves the store untouched. Of several
// concurrent rotations of the same key exactly one succeeds.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Rotate(ctx context.Context, oldKey, newKey, expectedValue string, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		return fmt.Errorf("invalid ttl %s", ttl)
	}

	code, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(oldKey), s.key(newKey)},
		expectedValue,
		ms,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound, rotateStatusMismatch:
		return ErrSessionNotFound
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrStoreUnavailable, code)
	}
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

// Close releases the connection when the Store was created by Dial.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.redis.Close()
}
