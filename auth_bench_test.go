package goShare

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func BenchmarkAuthenticateRequest(b *testing.B) {
	e, access, _ := newBenchmarkEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := e.AuthenticateRequest(ctx, access); err != nil {
			b.Fatalf("AuthenticateRequest failed: %v", err)
		}
	}
}

func BenchmarkVerifyAccessToken(b *testing.B) {
	e, access, _ := newBenchmarkEngine(b)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := e.VerifyAccessToken(access); err != nil {
			b.Fatalf("VerifyAccessToken failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	e, _, refresh := newBenchmarkEngine(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		res, err := e.Refresh(ctx, refresh)
		if err != nil {
			b.Fatalf("Refresh failed: %v", err)
		}
		refresh = res.RefreshToken
	}
}

func newBenchmarkEngine(tb testing.TB) (*Engine, string, string) {
	tb.Helper()

	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789")
	cfg.Password.Cost = bcrypt.MinCost
	cfg.Password.OTPHashCost = bcrypt.MinCost

	store := newMemoryStore()
	e, err := New().WithConfig(cfg).WithCredentialStore(store).Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	tb.Cleanup(e.Close)

	ctx := context.Background()
	if err := e.Register(ctx, RegisterInput{Username: "bench", Password: "bench-password", Email: "bench@example.com"}); err != nil {
		tb.Fatalf("Register failed: %v", err)
	}
	res, err := e.Login(ctx, "bench", "bench-password")
	if err != nil {
		tb.Fatalf("Login failed: %v", err)
	}
	return e, res.AccessToken, res.RefreshToken
}
