package goSession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

// Engine issues, verifies, rotates and revokes session credentials.
//
// An Engine is built once by [Builder.Build] and is immutable afterwards; all
// methods are safe for concurrent use. The revocation store is the only
// shared mutable state and every call into it takes the caller's context.
type Engine struct {
	config      Config
	jwtManager  *jwt.Manager
	store       RevocationStore
	rateLimiter *rate.Limiter
	flows       flows.Service
	audit       *auditDispatcher
	metrics     *Metrics
	logger      zerolog.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// Close flushes pending audit events and stops the dispatcher. The revocation
// store is owned by the caller and is left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events lost to a full buffer, a
// cancelled context or a panicking sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters. It is empty when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL returns the parsed access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.accessTTL
}

// RefreshTTL returns the parsed refresh token lifetime, which is also the
// lifetime of every revocation record.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.refreshTTL
}

// Cookies returns the cookie attributes HTTP adapters should apply.
func (e *Engine) Cookies() CookieConfig {
	if e == nil {
		return defaultConfig().Cookie
	}
	return e.config.Cookie
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.config.Now == nil {
		return time.Now()
	}
	return e.config.Now()
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Issue creates a session for userID and returns its credential pair.
//
// When previousSessionID is set, the session it names is deleted after the
// new one is stored. That delete is best-effort: its failure is logged,
// counted and audited but never returned.
func (e *Engine) Issue(ctx context.Context, userID, previousSessionID string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	result := e.flows.Issue(ctx, userID, previousSessionID)
	if result.Failure != flows.IssueFailureNone {
		err := e.issueError(result)
		e.recordIssueFailure(ctx, result, err)
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, result.UserID, result.SessionID, nil, func() map[string]string {
		if result.PreviousSessionID == "" {
			return nil
		}
		return map[string]string{
			"previous_session_id": result.PreviousSessionID,
			"previous_removed":    fmt.Sprint(result.PreviousRemoved),
		}
	})

	if result.PreviousCleanupErr != nil {
		e.metricInc(MetricPreviousSessionCleanupFailure)
		if errors.Is(result.PreviousCleanupErr, session.ErrStoreUnavailable) {
			e.metricInc(MetricStoreUnavailable)
		}
		e.logger.Warn().
			Err(result.PreviousCleanupErr).
			Str("user_id", result.UserID).
			Str("session_id", result.PreviousSessionID).
			Str("request_id", requestIDFromContext(ctx)).
			Msg("previous session cleanup failed")
		e.emitAudit(ctx, auditEventPreviousSessionCleanupFailed, false, result.UserID, result.PreviousSessionID, result.PreviousCleanupErr, nil)
	}

	return TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
	}, nil
}

func (e *Engine) issueError(result flows.IssueResult) error {
	switch result.Failure {
	case flows.IssueFailureInvalidUser:
		return ErrInvalidUserID
	case flows.IssueFailureRateLimited:
		if errors.Is(result.Err, rate.ErrRateLimited) {
			return ErrIssueRateLimited
		}
		return fmt.Errorf("%w: %v", ErrIssueUnavailable, result.Err)
	default:
		return fmt.Errorf("%w: %w", ErrSessionCreationFailed, result.Err)
	}
}

func (e *Engine) recordIssueFailure(ctx context.Context, result flows.IssueResult, err error) {
	eventType := auditEventIssueFailure
	switch {
	case errors.Is(err, ErrIssueRateLimited):
		e.metricInc(MetricIssueRateLimited)
		eventType = auditEventIssueRateLimited
	case errors.Is(err, ErrIssueUnavailable), errors.Is(err, session.ErrStoreUnavailable):
		e.metricInc(MetricIssueFailure)
		e.metricInc(MetricStoreUnavailable)
	default:
		e.metricInc(MetricIssueFailure)
	}

	e.logger.Debug().
		Err(result.Err).
		Str("user_id", result.UserID).
		Str("request_id", requestIDFromContext(ctx)).
		Msg("issue refused")
	e.emitAudit(ctx, eventType, false, result.UserID, result.SessionID, err, nil)
}

// SessionIDFromRefresh extracts the session id from an authentic refresh
// token, expired or not. Login handlers pass it to Issue as the previous
// session so that signing in again replaces the old session.
func (e *Engine) SessionIDFromRefresh(refreshToken string) (string, bool) {
	if e == nil || e.jwtManager == nil || refreshToken == "" {
		return "", false
	}
	claims, err := e.jwtManager.ParseRefreshUnchecked(refreshToken)
	if err != nil {
		return "", false
	}
	return claims.SID, true
}

// Verify authenticates a request from its access and refresh tokens.
//
// A valid access token yields StatusAuthenticated without touching the store.
// Otherwise a valid refresh token whose session is still recorded is
// exchanged for new credentials (StatusRotated). Every other case, including
// an unreachable store, yields StatusUnauthorized; the reason is logged and
// audited but not returned.
func (e *Engine) Verify(ctx context.Context, accessToken, refreshToken string) AuthResult {
	if !e.ready() {
		return AuthResult{Status: StatusUnauthorized}
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	result := e.flows.Verify(ctx, accessToken, refreshToken)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	switch result.Outcome {
	case flows.VerifyAuthenticated:
		e.metricInc(MetricVerifyAuthenticated)
		return AuthResult{
			Status: StatusAuthenticated,
			UserID: result.UserID,
		}
	case flows.VerifyRotated:
		e.metricInc(MetricVerifyRotated)
		e.emitAudit(ctx, auditEventVerifyRotated, true, result.UserID, result.SessionID, nil, func() map[string]string {
			metadata := map[string]string{
				"policy": e.config.Session.RotationPolicy.String(),
			}
			if result.PreviousSessionID != "" {
				metadata["previous_session_id"] = result.PreviousSessionID
			}
			return metadata
		})
		return AuthResult{
			Status:       StatusRotated,
			UserID:       result.UserID,
			SessionID:    result.SessionID,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}
	default:
		e.recordDenial(ctx, result)
		return AuthResult{Status: StatusUnauthorized}
	}
}

func (e *Engine) recordDenial(ctx context.Context, result flows.VerifyResult) {
	e.metricInc(MetricVerifyUnauthorized)
	switch result.Failure {
	case flows.VerifyFailureSessionNotFound:
		e.metricInc(MetricRotationConflict)
	case flows.VerifyFailureStore:
		e.metricInc(MetricStoreUnavailable)
	}

	reason := denialReason(result.Failure)
	e.logger.Debug().
		Err(result.Err).
		Str("reason", reason).
		Str("user_id", result.UserID).
		Str("session_id", result.SessionID).
		Str("request_id", requestIDFromContext(ctx)).
		Msg("verification denied")

	cause := result.Err
	if cause == nil {
		cause = ErrUnauthorized
	}
	e.emitAudit(ctx, auditEventVerifyUnauthorized, false, result.UserID, result.SessionID, cause, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func denialReason(kind flows.VerifyFailureKind) string {
	switch kind {
	case flows.VerifyFailureNoCredential:
		return "no_credential"
	case flows.VerifyFailureRefreshInvalid:
		return "refresh_invalid"
	case flows.VerifyFailureSessionNotFound:
		return "session_not_found"
	case flows.VerifyFailureStore:
		return "store_unavailable"
	case flows.VerifyFailureSessionID:
		return "session_id_failed"
	case flows.VerifyFailureSign:
		return "sign_failed"
	default:
		return "unknown"
	}
}

// Revoke deletes the session named by refreshToken. Authentic tokens revoke
// even after they expire; malformed or forged tokens are ignored. Store
// failures are logged and counted, never returned.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) {
	if !e.ready() {
		return
	}

	result := e.flows.Revoke(ctx, refreshToken)
	if result.Skipped {
		e.logger.Debug().
			Err(result.ParseErr).
			Str("request_id", requestIDFromContext(ctx)).
			Msg("revoke skipped")
		return
	}

	if result.Err != nil {
		e.metricInc(MetricRevokeFailure)
		if errors.Is(result.Err, session.ErrStoreUnavailable) {
			e.metricInc(MetricStoreUnavailable)
		}
		e.logger.Warn().
			Err(result.Err).
			Str("user_id", result.UserID).
			Str("session_id", result.SessionID).
			Str("request_id", requestIDFromContext(ctx)).
			Msg("session revoke failed")
		e.emitAudit(ctx, auditEventRevokeFailed, false, result.UserID, result.SessionID, result.Err, nil)
		return
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventRevokeSession, true, result.UserID, result.SessionID, nil, func() map[string]string {
		return map[string]string{"removed": fmt.Sprint(result.Removed)}
	})
}
