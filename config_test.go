package goShare

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "baseline", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:      "jwt leeway invalid",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "access ttl not shorter than refresh",
			mutate:    func(c *Config) { c.JWT.AccessTTL = c.JWT.RefreshTTL },
			wantValid: false,
		},
		{
			name:      "reset ttl zero",
			mutate:    func(c *Config) { c.JWT.ResetTTL = 0 },
			wantValid: false,
		},
		{
			name:      "short access secret",
			mutate:    func(c *Config) { c.JWT.AccessSecret = []byte("short") },
			wantValid: false,
		},
		{
			name:      "shared secrets",
			mutate:    func(c *Config) { c.JWT.RefreshSecret = cloneBytes(c.JWT.AccessSecret) },
			wantValid: false,
		},
		{
			name:      "bcrypt cost too high",
			mutate:    func(c *Config) { c.Password.Cost = 40 },
			wantValid: false,
		},
		{
			name:      "otp hash cost too low",
			mutate:    func(c *Config) { c.Password.OTPHashCost = 2 },
			wantValid: false,
		},
		{
			name:      "lockout threshold zero",
			mutate:    func(c *Config) { c.Lockout.Threshold = 0 },
			wantValid: false,
		},
		{
			name:      "otp digits too few",
			mutate:    func(c *Config) { c.OTP.Digits = 4 },
			wantValid: false,
		},
		{
			name:      "otp unbounded attempts allowed",
			mutate:    func(c *Config) { c.OTP.MaxAttempts = 0 },
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigRequiresSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secrets to be rejected")
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	cfg := testConfig()
	e, err := New().WithConfig(cfg).WithCredentialStore(newMemoryStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	cfg.JWT.AccessSecret[0] = 'X'
	if e.config.JWT.AccessSecret[0] == 'X' {
		t.Fatal("engine config must not alias caller memory")
	}
}

func TestBuilderRejectsReuseAndMissingStore(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without a credential store")
	}

	b := New().WithConfig(testConfig()).WithCredentialStore(newMemoryStore())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderUsesRedisStores(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := newMemoryStore()
	e, err := New().WithConfig(testConfig()).WithCredentialStore(store).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	registerUser(t, e, store, "alice", "correct horse")
	if _, err := e.Login(t.Context(), "alice", "correct horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	keys, _ := rdb.Keys(t.Context(), "grt:*").Result()
	if len(keys) != 1 {
		t.Fatalf("expected one ledger key in redis, got %v", keys)
	}
}
