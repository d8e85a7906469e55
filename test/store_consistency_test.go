//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
)

func TestStoreConsistencyDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newIntegrationStore(t)

	if err := store.Set(ctx, "sid-delete", "u1", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	n, err := store.Del(ctx, "sid-delete")
	if err != nil || n != 1 {
		t.Fatalf("first Del = %d, %v; want 1, nil", n, err)
	}
	n, err = store.Del(ctx, "sid-delete")
	if err != nil || n != 0 {
		t.Fatalf("second Del = %d, %v; want 0, nil", n, err)
	}
}

func TestStoreConsistencyMismatchLeavesRecord(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newIntegrationStore(t)

	if err := store.Set(ctx, "sid-mismatch", "u2", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := store.Rotate(ctx, "sid-mismatch", "sid-next", "someone-else", time.Hour); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	value, found, err := store.Get(ctx, "sid-mismatch")
	if err != nil || !found || value != "u2" {
		t.Fatalf("record changed after mismatch: %q, %v, %v", value, found, err)
	}
	if ok, _ := store.Exists(ctx, "sid-next"); ok {
		t.Fatal("mismatched rotation must not create the new record")
	}
}

func TestStoreConsistencyRotateResetsTTL(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newIntegrationStore(t)

	if err := store.Set(ctx, "sid-old", "u3", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(50 * time.Second)

	if err := store.Rotate(ctx, "sid-old", "sid-new", "u3", time.Hour); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if ok, _ := store.Exists(ctx, "sid-old"); ok {
		t.Fatal("old record must be consumed")
	}
	ttl, err := store.TTL(ctx, "sid-new")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 59*time.Minute || ttl > time.Hour {
		t.Fatalf("expected new record to carry the full lifetime, got %s", ttl)
	}
}

func TestStoreConsistencyExpiredRecordIsGone(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newIntegrationStore(t)

	if err := store.Set(ctx, "sid-exp", "u4", time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(1100 * time.Millisecond)

	if _, found, err := store.Get(ctx, "sid-exp"); err != nil || found {
		t.Fatalf("expected expired record to be missing, got found=%v err=%v", found, err)
	}
	if err := store.Rotate(ctx, "sid-exp", "sid-next", "u4", time.Hour); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired record, got %v", err)
	}
}
