package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
)

type RevokeSessionStore interface {
	Del(ctx context.Context, key string) (int64, error)
}

// RevokeDeps captures revoke flow dependencies.
type RevokeDeps struct {
	ParseRefreshUnchecked func(string) (*jwt.RefreshClaims, error)
	SessionStore          RevokeSessionStore
}

// RevokeResult describes what revocation did. Revocation is best-effort: none
// of these fields are surfaced as an error to the caller.
type RevokeResult struct {
	Skipped   bool
	ParseErr  error
	UserID    string
	SessionID string
	Removed   bool
	Err       error
}

// RunRevoke deletes the session named by refreshToken. Expired but authentic
// tokens still revoke; forged or malformed tokens are skipped without I/O.
func RunRevoke(ctx context.Context, refreshToken string, deps RevokeDeps) RevokeResult {
	claims, err := deps.ParseRefreshUnchecked(refreshToken)
	if err != nil {
		return RevokeResult{
			Skipped:  true,
			ParseErr: err,
		}
	}

	removed, err := deps.SessionStore.Del(ctx, claims.SID)
	return RevokeResult{
		UserID:    claims.UID,
		SessionID: claims.SID,
		Removed:   removed > 0,
		Err:       err,
	}
}
