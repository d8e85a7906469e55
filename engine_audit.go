package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

const (
	auditEventIssueSuccess                 = "issue_success"
	auditEventIssueFailure                 = "issue_failure"
	auditEventIssueRateLimited             = "issue_rate_limited"
	auditEventVerifyRotated                = "verify_rotated"
	auditEventVerifyUnauthorized           = "verify_unauthorized"
	auditEventRevokeSession                = "revoke_session"
	auditEventRevokeFailed                 = "revoke_failed"
	auditEventPreviousSessionCleanupFailed = "previous_session_cleanup_failed"
)

// AuditErrorCode is the stable, non-sensitive error classification carried in
// [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrUnauthorized          AuditErrorCode = "unauthorized"
	auditErrInvalidUser           AuditErrorCode = "invalid_user"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrTokenExpired          AuditErrorCode = "token_expired"
	auditErrTokenInvalid          AuditErrorCode = "invalid_token"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	meta := requestMetaFrom(ctx)
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		RequestID: meta.requestID,
		IP:        meta.clientIP,
		UserAgent: meta.userAgent,
		Success:   success,
		Error:     string(auditErrorCode(err)),
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	e.audit.Emit(ctx, event)
}

// auditErrorCodes is checked in order; the first matching sentinel wins, so
// the specific store and codec errors precede the ErrUnauthorized wrapper.
var auditErrorCodes = []struct {
	target error
	code   AuditErrorCode
}{
	{ErrInvalidUserID, auditErrInvalidUser},
	{ErrIssueRateLimited, auditErrRateLimited},
	{ErrIssueUnavailable, auditErrUnavailable},
	{session.ErrStoreUnavailable, auditErrUnavailable},
	{ErrSessionCreationFailed, auditErrSessionCreationFailed},
	{session.ErrSessionNotFound, auditErrSessionNotFound},
	{jwt.ErrExpired, auditErrTokenExpired},
	{jwt.ErrMalformed, auditErrTokenInvalid},
	{jwt.ErrInvalidSignature, auditErrTokenInvalid},
	{ErrUnauthorized, auditErrUnauthorized},
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, c := range auditErrorCodes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return auditErrInternal
}
