package goShare

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("default config should not fail AsError(LintHigh): %v", err)
	}
	if !containsCode(cfg.Lint().Codes(), "audit_disabled") {
		t.Error("expected audit_disabled on the default config")
	}
}

func TestLint_LargeLeeway(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLint_LongTTLs(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 90 * 24 * time.Hour
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "access_ttl_long") || !containsCode(codes, "refresh_ttl_long") {
		t.Errorf("expected ttl warnings, got %v", codes)
	}
}

func TestLint_LowBcryptCost(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Cost = 8
	if !containsCode(cfg.Lint().Codes(), "bcrypt_cost_low") {
		t.Error("expected bcrypt_cost_low warning")
	}
}

func TestLint_SeverityAndAsError(t *testing.T) {
	cfg := defaultConfig()
	cfg.OTP.DevLogCodes = true
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "otp_dev_logging" {
		t.Fatalf("expected otp_dev_logging as the only HIGH warning, got %+v", high)
	}
	if high[0].Severity.String() != "HIGH" {
		t.Errorf("unexpected severity string %q", high[0].Severity)
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to fail with dev logging on")
	}
}

func TestLint_DevSecrets(t *testing.T) {
	cfg := testConfig()
	if containsCode(cfg.Lint().Codes(), "jwt_dev_secret") {
		t.Fatal("custom secrets should not be flagged")
	}

	cfg.JWT.AccessSecret = []byte(DevAccessSecret)
	high := cfg.Lint().BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "jwt_dev_secret" {
		t.Fatalf("expected jwt_dev_secret as HIGH, got %+v", high)
	}

	cfg = testConfig()
	cfg.JWT.RefreshSecret = []byte(DevRefreshSecret)
	if !containsCode(cfg.Lint().Codes(), "jwt_dev_secret") {
		t.Error("expected jwt_dev_secret for the refresh secret")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
