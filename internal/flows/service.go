package flows

import "context"

// Deps is the full wiring for one Engine: one dependency set per operation.
type Deps struct {
	Issue  IssueDeps
	Verify VerifyDeps
	Revoke RevokeDeps
}

// Service binds Deps once so callers pass only per-request arguments.
type Service struct {
	deps Deps
}

func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized is false for the zero Service, which an Engine built without
// Builder would carry.
func (s Service) Initialized() bool {
	return s.deps.Verify.ParseAccess != nil &&
		s.deps.Issue.SessionStore != nil &&
		s.deps.Revoke.SessionStore != nil
}

func (s Service) Issue(ctx context.Context, userID, previousSessionID string) IssueResult {
	return RunIssue(ctx, userID, previousSessionID, s.deps.Issue)
}

func (s Service) Verify(ctx context.Context, accessToken, refreshToken string) VerifyResult {
	return RunVerify(ctx, accessToken, refreshToken, s.deps.Verify)
}

func (s Service) Revoke(ctx context.Context, refreshToken string) RevokeResult {
	return RunRevoke(ctx, refreshToken, s.deps.Revoke)
}
