package goSession

import "errors"

var (
	// ErrUnauthorized is the single public face of every denied verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidUserID is returned by Issue for an empty user id.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrSessionCreationFailed is returned by Issue when a session id, a token or the
	// revocation record cannot be produced. It wraps the cause.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrIssueRateLimited is returned by Issue when the per-user issuance throttle trips.
	ErrIssueRateLimited = errors.New("issue rate limited")
	// ErrIssueUnavailable is returned by Issue when the issuance throttle backend is down.
	ErrIssueUnavailable = errors.New("issue throttle backend unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
