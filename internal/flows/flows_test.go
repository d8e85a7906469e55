package flows

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

type memoryStore struct {
	mu      sync.Mutex
	records map[string]string
	failGet error
	failSet error
	failDel error
	failRot error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]string{}}
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.records[key] = value
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return "", false, s.failGet
	}
	v, ok := s.records[key]
	return v, ok, nil
}

func (s *memoryStore) Del(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel != nil {
		return 0, s.failDel
	}
	if _, ok := s.records[key]; !ok {
		return 0, nil
	}
	delete(s.records, key)
	return 1, nil
}

func (s *memoryStore) Rotate(_ context.Context, oldKey, newKey, expected string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRot != nil {
		return s.failRot
	}
	if v, ok := s.records[oldKey]; !ok || v != expected {
		return errNotFound
	}
	delete(s.records, oldKey)
	s.records[newKey] = expected
	return nil
}

type rejectAll struct{ err error }

func (r rejectAll) CheckIssue(context.Context, string) error { return r.err }

type flowFixture struct {
	mgr   *jwt.Manager
	store *memoryStore
	now   time.Time
	seq   int
	deps  Deps
}

func newFlowFixture(t *testing.T, rotateOnUse bool) *flowFixture {
	t.Helper()
	f := &flowFixture{
		store: newMemoryStore(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	mgr, err := jwt.NewManager(jwt.Config{
		AccessSecret:  []byte("as"),
		RefreshSecret: []byte("rs"),
		AccessTTL:     time.Second,
		RefreshTTL:    2 * time.Second,
		Now:           func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.mgr = mgr

	newSessionID := func() (string, error) {
		f.seq++
		return "sid-" + strconv.Itoa(f.seq), nil
	}
	f.deps = Deps{
		Issue: IssueDeps{
			NewSessionID:  newSessionID,
			CreateAccess:  mgr.CreateAccess,
			CreateRefresh: mgr.CreateRefresh,
			RefreshTTL:    2 * time.Second,
			SessionStore:  f.store,
		},
		Verify: VerifyDeps{
			ParseAccess:     mgr.ParseAccess,
			ParseRefresh:    mgr.ParseRefresh,
			NewSessionID:    newSessionID,
			CreateAccess:    mgr.CreateAccess,
			CreateRefresh:   mgr.CreateRefresh,
			RefreshTTL:      2 * time.Second,
			RotateOnUse:     rotateOnUse,
			SessionStore:    f.store,
			SessionNotFound: errNotFound,
		},
		Revoke: RevokeDeps{
			ParseRefreshUnchecked: mgr.ParseRefreshUnchecked,
			SessionStore:          f.store,
		},
	}
	return f
}

func TestRunIssueCreatesRecord(t *testing.T) {
	f := newFlowFixture(t, true)
	res := RunIssue(context.Background(), "123", "", f.deps.Issue)

	require.Equal(t, IssueFailureNone, res.Failure)
	assert.Equal(t, "sid-1", res.SessionID)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "123", f.store.records["sid-1"])
}

func TestRunIssueRejectsEmptyUser(t *testing.T) {
	f := newFlowFixture(t, true)
	res := RunIssue(context.Background(), "", "", f.deps.Issue)
	assert.Equal(t, IssueFailureInvalidUser, res.Failure)
	assert.Empty(t, f.store.records)
}

func TestRunIssueRateLimited(t *testing.T) {
	f := newFlowFixture(t, true)
	deps := f.deps.Issue
	deps.RateLimiter = rejectAll{err: errors.New("limited")}

	res := RunIssue(context.Background(), "123", "", deps)
	assert.Equal(t, IssueFailureRateLimited, res.Failure)
	assert.Empty(t, f.store.records)
}

func TestRunIssueStoreFailure(t *testing.T) {
	f := newFlowFixture(t, true)
	f.store.failSet = errors.New("down")

	res := RunIssue(context.Background(), "123", "", f.deps.Issue)
	assert.Equal(t, IssueFailureStore, res.Failure)
	assert.Empty(t, res.AccessToken)
}

func TestRunIssueReplacesPreviousSession(t *testing.T) {
	f := newFlowFixture(t, true)
	first := RunIssue(context.Background(), "123", "", f.deps.Issue)
	second := RunIssue(context.Background(), "123", first.SessionID, f.deps.Issue)

	require.Equal(t, IssueFailureNone, second.Failure)
	assert.True(t, second.PreviousRemoved)
	assert.NotContains(t, f.store.records, first.SessionID)
	assert.Contains(t, f.store.records, second.SessionID)
}

func TestRunIssuePreviousCleanupFailureIsNotFatal(t *testing.T) {
	f := newFlowFixture(t, true)
	f.store.failDel = errors.New("down")

	res := RunIssue(context.Background(), "123", "old", f.deps.Issue)
	require.Equal(t, IssueFailureNone, res.Failure)
	assert.Error(t, res.PreviousCleanupErr)
	assert.NotEmpty(t, res.AccessToken)
}

func TestRunVerifyAccessShortCircuits(t *testing.T) {
	f := newFlowFixture(t, true)
	issued := RunIssue(context.Background(), "123", "", f.deps.Issue)
	f.store.failGet = errors.New("must not be called")
	f.store.failRot = errors.New("must not be called")

	res := RunVerify(context.Background(), issued.AccessToken, "garbage", f.deps.Verify)
	assert.Equal(t, VerifyAuthenticated, res.Outcome)
	assert.Equal(t, "123", res.UserID)
}

func TestRunVerifyNoRefresh(t *testing.T) {
	f := newFlowFixture(t, true)
	res := RunVerify(context.Background(), "", "", f.deps.Verify)
	assert.Equal(t, VerifyUnauthorized, res.Outcome)
	assert.Equal(t, VerifyFailureNoCredential, res.Failure)
}

func TestRunVerifyRotatesOnce(t *testing.T) {
	f := newFlowFixture(t, true)
	issued := RunIssue(context.Background(), "123", "", f.deps.Issue)
	f.now = f.now.Add(1500 * time.Millisecond)

	res := RunVerify(context.Background(), issued.AccessToken, issued.RefreshToken, f.deps.Verify)
	require.Equal(t, VerifyRotated, res.Outcome)
	assert.Equal(t, issued.SessionID, res.PreviousSessionID)
	assert.NotEqual(t, issued.SessionID, res.SessionID)
	assert.NotEmpty(t, res.RefreshToken)
	assert.ErrorIs(t, res.AccessErr, jwt.ErrExpired)

	replay := RunVerify(context.Background(), issued.AccessToken, issued.RefreshToken, f.deps.Verify)
	assert.Equal(t, VerifyUnauthorized, replay.Outcome)
	assert.Equal(t, VerifyFailureSessionNotFound, replay.Failure)
}

func TestRunVerifyStoreFailureFailsClosed(t *testing.T) {
	f := newFlowFixture(t, true)
	issued := RunIssue(context.Background(), "123", "", f.deps.Issue)
	f.now = f.now.Add(1500 * time.Millisecond)
	f.store.failRot = errors.New("down")

	res := RunVerify(context.Background(), "", issued.RefreshToken, f.deps.Verify)
	assert.Equal(t, VerifyUnauthorized, res.Outcome)
	assert.Equal(t, VerifyFailureStore, res.Failure)
	assert.Empty(t, res.AccessToken)
}

func TestRunVerifyReusePolicyKeepsRefresh(t *testing.T) {
	f := newFlowFixture(t, false)
	issued := RunIssue(context.Background(), "123", "", f.deps.Issue)
	f.now = f.now.Add(1500 * time.Millisecond)

	res := RunVerify(context.Background(), "", issued.RefreshToken, f.deps.Verify)
	require.Equal(t, VerifyRotated, res.Outcome)
	assert.Empty(t, res.RefreshToken)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, issued.SessionID, res.SessionID)

	again := RunVerify(context.Background(), "", issued.RefreshToken, f.deps.Verify)
	assert.Equal(t, VerifyRotated, again.Outcome)

	delete(f.store.records, issued.SessionID)
	revoked := RunVerify(context.Background(), "", issued.RefreshToken, f.deps.Verify)
	assert.Equal(t, VerifyUnauthorized, revoked.Outcome)
	assert.Equal(t, VerifyFailureSessionNotFound, revoked.Failure)
}

func TestRunRevoke(t *testing.T) {
	f := newFlowFixture(t, true)
	issued := RunIssue(context.Background(), "123", "", f.deps.Issue)
	f.now = f.now.Add(time.Hour)

	res := RunRevoke(context.Background(), issued.RefreshToken, f.deps.Revoke)
	assert.False(t, res.Skipped)
	assert.True(t, res.Removed)
	assert.Empty(t, f.store.records)

	skipped := RunRevoke(context.Background(), "garbage", f.deps.Revoke)
	assert.True(t, skipped.Skipped)
	assert.ErrorIs(t, skipped.ParseErr, jwt.ErrMalformed)
}
