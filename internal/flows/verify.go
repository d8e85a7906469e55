package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// VerifyOutcome is the terminal state of one verification.
type VerifyOutcome int

const (
	VerifyUnauthorized VerifyOutcome = iota
	VerifyAuthenticated
	VerifyRotated
)

// VerifyFailureKind records why a verification ended Unauthorized.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureNoCredential
	VerifyFailureRefreshInvalid
	VerifyFailureSessionNotFound
	VerifyFailureStore
	VerifyFailureSessionID
	VerifyFailureSign
)

// VerifyResult carries the outcome plus the metadata the root needs for
// metrics, audit and logging. Failure details never reach callers of Verify.
type VerifyResult struct {
	Outcome           VerifyOutcome
	Failure           VerifyFailureKind
	Err               error
	AccessErr         error
	UserID            string
	SessionID         string
	PreviousSessionID string
	AccessToken       string
	RefreshToken      string
}

type VerifySessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Rotate(ctx context.Context, oldKey, newKey, expectedValue string, ttl time.Duration) error
}

// VerifyDeps captures verify flow dependencies.
type VerifyDeps struct {
	ParseAccess     func(string) (*jwt.AccessClaims, error)
	ParseRefresh    func(string) (*jwt.RefreshClaims, error)
	NewSessionID    func() (string, error)
	CreateAccess    func(userID string) (string, time.Time, error)
	CreateRefresh   func(userID, sessionID string) (string, time.Time, error)
	RefreshTTL      time.Duration
	RotateOnUse     bool
	SessionStore    VerifySessionStore
	SessionNotFound error
}

// RunVerify authenticates a request from its access and refresh tokens.
//
// A valid access token short-circuits with no store access. Otherwise a valid
// refresh token whose session record still exists is exchanged for fresh
// credentials. Every other path ends Unauthorized, including store failures.
func RunVerify(ctx context.Context, accessToken, refreshToken string, deps VerifyDeps) VerifyResult {
	access, accessErr := deps.ParseAccess(accessToken)
	if accessErr == nil {
		return VerifyResult{
			Outcome: VerifyAuthenticated,
			UserID:  access.UID,
		}
	}

	if refreshToken == "" {
		return VerifyResult{
			Outcome:   VerifyUnauthorized,
			Failure:   VerifyFailureNoCredential,
			Err:       accessErr,
			AccessErr: accessErr,
		}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return VerifyResult{
			Outcome:   VerifyUnauthorized,
			Failure:   VerifyFailureRefreshInvalid,
			Err:       err,
			AccessErr: accessErr,
		}
	}

	if deps.RotateOnUse {
		return rotate(ctx, claims, accessErr, deps)
	}
	return reuse(ctx, claims, accessErr, deps)
}

func rotate(ctx context.Context, claims *jwt.RefreshClaims, accessErr error, deps VerifyDeps) VerifyResult {
	denied := func(kind VerifyFailureKind, err error) VerifyResult {
		return VerifyResult{
			Outcome:   VerifyUnauthorized,
			Failure:   kind,
			Err:       err,
			AccessErr: accessErr,
			UserID:    claims.UID,
			SessionID: claims.SID,
		}
	}

	nextSessionID, err := deps.NewSessionID()
	if err != nil {
		return denied(VerifyFailureSessionID, err)
	}

	// Sign before touching the store: once the old record is consumed the
	// caller must receive working credentials.
	access, _, err := deps.CreateAccess(claims.UID)
	if err != nil {
		return denied(VerifyFailureSign, err)
	}
	refresh, _, err := deps.CreateRefresh(claims.UID, nextSessionID)
	if err != nil {
		return denied(VerifyFailureSign, err)
	}

	if err := deps.SessionStore.Rotate(ctx, claims.SID, nextSessionID, claims.UID, deps.RefreshTTL); err != nil {
		if deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound) {
			return denied(VerifyFailureSessionNotFound, err)
		}
		return denied(VerifyFailureStore, err)
	}

	return VerifyResult{
		Outcome:           VerifyRotated,
		AccessErr:         accessErr,
		UserID:            claims.UID,
		SessionID:         nextSessionID,
		PreviousSessionID: claims.SID,
		AccessToken:       access,
		RefreshToken:      refresh,
	}
}

func reuse(ctx context.Context, claims *jwt.RefreshClaims, accessErr error, deps VerifyDeps) VerifyResult {
	denied := func(kind VerifyFailureKind, err error) VerifyResult {
		return VerifyResult{
			Outcome:   VerifyUnauthorized,
			Failure:   kind,
			Err:       err,
			AccessErr: accessErr,
			UserID:    claims.UID,
			SessionID: claims.SID,
		}
	}

	owner, found, err := deps.SessionStore.Get(ctx, claims.SID)
	if err != nil {
		return denied(VerifyFailureStore, err)
	}
	if !found || owner != claims.UID {
		return denied(VerifyFailureSessionNotFound, deps.SessionNotFound)
	}

	access, _, err := deps.CreateAccess(claims.UID)
	if err != nil {
		return denied(VerifyFailureSign, err)
	}

	return VerifyResult{
		Outcome:     VerifyRotated,
		AccessErr:   accessErr,
		UserID:      claims.UID,
		SessionID:   claims.SID,
		AccessToken: access,
	}
}
