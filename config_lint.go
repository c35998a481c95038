package goShare

import (
	"fmt"
	"strings"
	"time"
)

// Development secrets shipped with the server defaults. Anyone holding them
// can mint tokens, so [Config.Lint] flags them.
const (
	DevAccessSecret  = "dev_secret_change_me"
	DevRefreshSecret = "dev_refresh_secret_change_me"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	// LintInfo marks a setting worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that weakens the deployment.
	LintWarn
	// LintHigh marks a setting that should never reach production.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding reported by [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	found := r.BySeverity(min)
	if len(found) == 0 {
		return nil
	}
	parts := make([]string, 0, len(found))
	for _, w := range found {
		parts = append(parts, fmt.Sprintf("%s[%s]: %s", w.Code, w.Severity, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but are questionable for a
// deployment. It never mutates the config.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if isDevSecret(c.JWT.AccessSecret) || isDevSecret(c.JWT.RefreshSecret) {
		add("jwt_dev_secret", LintHigh, "JWT secrets are the built-in development values")
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m widens the replay window")
	}
	if c.JWT.AccessTTL > 30*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live longer than 30m")
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh tokens live longer than 30 days")
	}
	if c.Password.Cost < 10 {
		add("bcrypt_cost_low", LintWarn, "bcrypt cost below 10")
	}
	if c.Lockout.Threshold > 20 {
		add("lockout_threshold_high", LintWarn, "more than 20 failures before lockout")
	}
	if c.OTP.MaxAttempts == 0 {
		add("otp_attempts_unbounded", LintHigh, "OTP challenges accept unlimited wrong codes")
	}
	if c.OTP.DevLogCodes {
		add("otp_dev_logging", LintHigh, "reset codes are written to the log")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}

	return out
}

func isDevSecret(secret []byte) bool {
	s := string(secret)
	return s == DevAccessSecret || s == DevRefreshSecret
}
