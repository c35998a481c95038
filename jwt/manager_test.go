package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func testConfig() Config {
	return Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      10 * time.Minute,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

var alice = Subject{UserID: "u-1", Username: "alice", Role: "user"}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := newTestManager(t)

	token, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	claims, err := m.Verify(KindAccess, token)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UID != "u-1" || claims.Username != "alice" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Kind != KindAccess {
		t.Fatalf("expected access kind, got %q", claims.Kind)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 15*time.Minute {
		t.Fatalf("expected 15m lifetime, got %v", ttl)
	}
}

func TestRefreshUsesSeparateSecret(t *testing.T) {
	m := newTestManager(t)

	refresh, expiresAt, err := m.IssueRefresh(alice)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if time.Until(expiresAt) < 7*24*time.Hour-time.Minute {
		t.Fatalf("unexpected refresh expiry %v", expiresAt)
	}

	if _, err := m.Verify(KindRefresh, refresh); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if _, err := m.Verify(KindAccess, refresh); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected refresh token rejected as access, got %v", err)
	}

	access, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := m.Verify(KindRefresh, access); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected access token rejected as refresh, got %v", err)
	}
}

func TestResetTokenCannotBeReplayedAsAccess(t *testing.T) {
	m := newTestManager(t)

	reset, err := m.IssueReset("alice@example.com")
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}

	claims, err := m.Verify(KindReset, reset)
	if err != nil {
		t.Fatalf("verify reset: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("unexpected email claim %q", claims.Email)
	}

	if _, err := m.Verify(KindAccess, reset); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected reset token rejected as access, got %v", err)
	}

	// A token shaped like an access token but carrying the reset kind is still rejected.
	forged, err := m.Issue(KindReset, Claims{UID: "u-1", Username: "alice", Role: "admin", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}
	if _, err := m.Verify(KindAccess, forged); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected forged reset token rejected, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{
		UID:  "u-1",
		Kind: KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-16 * time.Minute)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testConfig().AccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Verify(KindAccess, token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{UID: "u-1", Kind: KindAccess}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testConfig().AccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Verify(KindAccess, token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected token without exp rejected, got %v", err)
	}
}

func TestVerifyRejectsWrongSignatureAndGarbage(t *testing.T) {
	m := newTestManager(t)

	other, err := NewManager(Config{
		AccessSecret:  []byte("some-other-access-secret"),
		RefreshSecret: []byte("some-other-refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		ResetTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, err := other.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	for _, token := range []string{foreign, "", "garbage", "a.b.c"} {
		if _, err := m.Verify(KindAccess, token); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("expected %q rejected, got %v", token, err)
		}
	}
}

func TestVerifyRejectsAlgorithmSwitch(t *testing.T) {
	m := newTestManager(t)

	token, err := m.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")
	// {"alg":"none","typ":"JWT"}
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." + parts[1] + "."
	if _, err := m.Verify(KindAccess, unsigned); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected alg=none rejected, got %v", err)
	}
}

func TestTokensAreUniquePerIssue(t *testing.T) {
	m := newTestManager(t)

	a, _, err := m.IssueRefresh(alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _, err := m.IssueRefresh(alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct refresh tokens for the same subject")
	}
}

func TestIssuerIsEnforced(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "goshare"
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	cfg.Issuer = "someone-else"
	other, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := other.IssueAccess(alice)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(KindAccess, token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected issuer mismatch rejected, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := map[string]func(*Config){
		"zero access ttl":  func(c *Config) { c.AccessTTL = 0 },
		"zero refresh ttl": func(c *Config) { c.RefreshTTL = 0 },
		"zero reset ttl":   func(c *Config) { c.ResetTTL = 0 },
		"negative leeway":  func(c *Config) { c.Leeway = -time.Second },
		"huge leeway":      func(c *Config) { c.Leeway = time.Hour },
		"no access key":    func(c *Config) { c.AccessSecret = nil },
		"no refresh key":   func(c *Config) { c.RefreshSecret = nil },
		"shared secret":    func(c *Config) { c.RefreshSecret = c.AccessSecret },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
