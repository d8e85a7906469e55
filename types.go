package goSession

import (
	"context"
	"time"
)

// AuthStatus is the terminal state of [Engine.Verify].
type AuthStatus int

const (
	// StatusUnauthorized means the request carries no usable credential.
	StatusUnauthorized AuthStatus = iota
	// StatusAuthenticated means the access token was valid. No store access happened.
	StatusAuthenticated
	// StatusRotated means the access token was missing or invalid and the refresh
	// token was exchanged for new credentials that the caller must deliver.
	StatusRotated
)

func (s AuthStatus) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusRotated:
		return "rotated"
	default:
		return "unauthorized"
	}
}

// AuthResult is returned by [Engine.Verify]. Token fields are only set for
// StatusRotated; RefreshToken stays empty under [RotationReuse].
type AuthResult struct {
	Status       AuthStatus
	UserID       string
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// Authorized reports whether the request may proceed.
func (r AuthResult) Authorized() bool {
	return r.Status == StatusAuthenticated || r.Status == StatusRotated
}

// TokenPair is the credential set returned by [Engine.Issue].
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// RevocationStore is the key-value contract the Engine needs from its backing
// store. Keys are session ids, values are user ids, and every record expires
// together with its refresh token.
//
// Implementations must return an error wrapping their unavailability sentinel
// on backend failure, report missing keys through Get's found flag, and make
// Rotate atomic: of concurrent rotations of one key exactly one succeeds.
//
// [session.Store] is the Redis implementation.
type RevocationStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Rotate(ctx context.Context, oldKey, newKey, expectedValue string, ttl time.Duration) error
}
