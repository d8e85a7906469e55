package flows

import (
	"context"
	"errors"
	"time"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureInvalidUser
	IssueFailureRateLimited
	IssueFailureSessionID
	IssueFailureSignAccess
	IssueFailureSignRefresh
	IssueFailureStore
)

// IssueResult carries either the issued token pair or failure metadata.
// PreviousCleanupErr is informational only: a failed cleanup never fails the flow.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	UserID       string
	SessionID    string
	AccessToken  string
	RefreshToken string

	PreviousSessionID  string
	PreviousRemoved    bool
	PreviousCleanupErr error
}

type IssueRateLimiter interface {
	CheckIssue(ctx context.Context, userID string) error
}

type IssueSessionStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) (int64, error)
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	NewSessionID  func() (string, error)
	CreateAccess  func(userID string) (string, time.Time, error)
	CreateRefresh func(userID, sessionID string) (string, time.Time, error)
	RefreshTTL    time.Duration
	RateLimiter   IssueRateLimiter
	SessionStore  IssueSessionStore
}

// RunIssue creates a new session for userID and signs its token pair. The
// revocation record is written only after both tokens are signed, so a signing
// failure never leaves an orphaned record behind.
func RunIssue(ctx context.Context, userID, previousSessionID string, deps IssueDeps) IssueResult {
	if userID == "" {
		return IssueResult{
			Failure: IssueFailureInvalidUser,
			Err:     errors.New("empty user id"),
		}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckIssue(ctx, userID); err != nil {
			return IssueResult{
				Failure: IssueFailureRateLimited,
				Err:     err,
				UserID:  userID,
			}
		}
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return IssueResult{
			Failure: IssueFailureSessionID,
			Err:     err,
			UserID:  userID,
		}
	}

	access, _, err := deps.CreateAccess(userID)
	if err != nil {
		return IssueResult{
			Failure:   IssueFailureSignAccess,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	refresh, _, err := deps.CreateRefresh(userID, sessionID)
	if err != nil {
		return IssueResult{
			Failure:   IssueFailureSignRefresh,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	if err := deps.SessionStore.Set(ctx, sessionID, userID, deps.RefreshTTL); err != nil {
		return IssueResult{
			Failure:   IssueFailureStore,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
		}
	}

	result := IssueResult{
		Failure:           IssueFailureNone,
		UserID:            userID,
		SessionID:         sessionID,
		AccessToken:       access,
		RefreshToken:      refresh,
		PreviousSessionID: previousSessionID,
	}

	if previousSessionID != "" && previousSessionID != sessionID {
		removed, err := deps.SessionStore.Del(ctx, previousSessionID)
		result.PreviousRemoved = removed > 0
		result.PreviousCleanupErr = err
	}

	return result
}
