package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "rt:")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSetGetExistsDel(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "sid-1", "123", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := mr.Get("rt:sid-1"); err != nil || got != "123" {
		t.Fatalf("expected prefixed key holding 123, got %q (%v)", got, err)
	}

	value, found, err := store.Get(ctx, "sid-1")
	if err != nil || !found || value != "123" {
		t.Fatalf("get: value=%q found=%v err=%v", value, found, err)
	}

	ok, err := store.Exists(ctx, "sid-1")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}

	n, err := store.Del(ctx, "sid-1")
	if err != nil || n != 1 {
		t.Fatalf("first delete: n=%d err=%v", n, err)
	}
	n, err = store.Del(ctx, "sid-1")
	if err != nil || n != 0 {
		t.Fatalf("second delete must be a no-op: n=%d err=%v", n, err)
	}

	_, found, err = store.Get(ctx, "sid-1")
	if err != nil || found {
		t.Fatalf("expected missing record, found=%v err=%v", found, err)
	}
}

func TestSetOverwritesAndResetsTTL(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "sid-1", "a", 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(8 * time.Second)
	if err := store.Set(ctx, "sid-1", "b", 10*time.Second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	mr.FastForward(8 * time.Second)

	value, found, err := store.Get(ctx, "sid-1")
	if err != nil || !found || value != "b" {
		t.Fatalf("expected overwritten record to survive, value=%q found=%v err=%v", value, found, err)
	}
}

func TestRecordExpiresWithTTL(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "sid-1", "123", 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	ttl, err := store.TTL(ctx, "sid-1")
	if err != nil || ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("unexpected ttl %s (%v)", ttl, err)
	}

	mr.FastForward(2 * time.Second)

	ok, err := store.Exists(ctx, "sid-1")
	if err != nil || ok {
		t.Fatalf("expected record to expire, exists=%v err=%v", ok, err)
	}
	if ttl, _ := store.TTL(ctx, "sid-1"); ttl != 0 {
		t.Fatalf("expected zero ttl for missing key, got %s", ttl)
	}
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()

	if err := store.Set(context.Background(), "sid-1", "123", 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

func TestRotateConsumesOldRecord(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "old", "123", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Rotate(ctx, "old", "new", "123", 30*time.Minute); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if mr.Exists("rt:old") {
		t.Fatal("old record must be deleted")
	}
	value, found, err := store.Get(ctx, "new")
	if err != nil || !found || value != "123" {
		t.Fatalf("new record: value=%q found=%v err=%v", value, found, err)
	}
	if ttl := mr.TTL("rt:new"); ttl <= 0 || ttl > 30*time.Minute {
		t.Fatalf("unexpected ttl on new record: %s", ttl)
	}

	if err := store.Rotate(ctx, "old", "newer", "123", time.Hour); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected replay to be refused, got %v", err)
	}
	if mr.Exists("rt:newer") {
		t.Fatal("failed rotation must not create a record")
	}
}

func TestRotateValueMismatchLeavesRecord(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "old", "123", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Rotate(ctx, "old", "new", "999", time.Hour); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected mismatch to report not found, got %v", err)
	}
	if !mr.Exists("rt:old") || mr.Exists("rt:new") {
		t.Fatal("mismatched rotation must leave the store untouched")
	}
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Set(ctx, "old", "123", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	const workers = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		notFound int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := store.Rotate(ctx, "old", "new-"+string(rune('a'+i)), "123", time.Hour)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrSessionNotFound):
				notFound++
			default:
				t.Errorf("unexpected rotate error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if success != 1 || notFound != workers-1 {
		t.Fatalf("expected exactly one winner, got success=%d notFound=%d", success, notFound)
	}
}

func TestStoreUnavailable(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	mr.Close()

	if err := store.Set(ctx, "sid", "123", time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("set: expected unavailable, got %v", err)
	}
	if _, _, err := store.Get(ctx, "sid"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("get: expected unavailable, got %v", err)
	}
	if _, err := store.Del(ctx, "sid"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("del: expected unavailable, got %v", err)
	}
	if _, err := store.Exists(ctx, "sid"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("exists: expected unavailable, got %v", err)
	}
	err := store.Rotate(ctx, "old", "new", "123", time.Hour)
	if !errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("rotate: expected unavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping: expected unavailable, got %v", err)
	}
}

func TestDialOwnsClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()

	store, err := Dial(ctx, "redis://"+mr.Addr(), "rt:")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.Ping(ctx); err == nil {
		t.Fatal("expected ping on closed store to fail")
	}

	if _, err := Dial(ctx, "not-a-url", "rt:"); err == nil {
		t.Fatal("expected invalid url to fail")
	}
}
