package goShare

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSecurityInvariantTokenKindsDoNotCross(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	registerUser(t, e, store, "alice", "correct horse")
	ctx := context.Background()

	res, err := e.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	reset, err := e.jwtManager.IssueReset("alice@example.com")
	if err != nil {
		t.Fatalf("IssueReset failed: %v", err)
	}

	if _, err := e.AuthenticateRequest(ctx, reset); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reset token accepted as access token: %v", err)
	}
	if _, err := e.VerifyAccessToken(res.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, err := e.Refresh(ctx, reset); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reset token accepted as refresh token: %v", err)
	}
	if err := e.ResetPassword(ctx, res.AccessToken, "new password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access token accepted as reset token: %v", err)
	}
}

func TestSecurityInvariantResetTokensExpire(t *testing.T) {
	store := newMemoryStore()
	cfg := testConfig()
	cfg.JWT.ResetTTL = time.Second
	e, err := New().WithConfig(cfg).WithCredentialStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()
	registerUser(t, e, store, "alice", "correct horse")

	reset, err := e.jwtManager.IssueReset("alice@example.com")
	if err != nil {
		t.Fatalf("IssueReset failed: %v", err)
	}
	time.Sleep(2100 * time.Millisecond)

	if err := e.ResetPassword(context.Background(), reset, "new password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired reset token accepted: %v", err)
	}
}

func TestSecurityInvariantRedisRotationSingleWinner(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMemoryStore()
	e, err := New().WithConfig(testConfig()).WithCredentialStore(store).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()
	registerUser(t, e, store, "alice", "correct horse")

	res, err := e.Login(context.Background(), "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const workers = 16
	var wins atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := e.Refresh(context.Background(), res.RefreshToken); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected one winner, got %d", wins.Load())
	}
	keys, _ := rdb.Keys(context.Background(), "grt:*").Result()
	if len(keys) != 1 {
		t.Fatalf("expected exactly one live refresh record, got %d", len(keys))
	}
}
