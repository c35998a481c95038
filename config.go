package goShare

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config defines a public type used by goShare APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	OTP      OTPConfig
	Ledger   LedgerConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goShare APIs.
//
// AccessSecret signs access and reset tokens, RefreshSecret signs refresh tokens.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goShare APIs.
type PasswordConfig struct {
	Cost        int
	OTPHashCost int
}

/*
====================================
LOCKOUT / OTP / LEDGER
====================================
*/

// LockoutConfig controls brute-force lockout accounting on login.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// OTPConfig controls the password-reset OTP challenge.
//
// DevLogCodes writes issued codes to the engine logger. It exists for local
// development where no mail delivery is wired and must stay off in production.
type OTPConfig struct {
	TTL         time.Duration
	Digits      int
	MaxAttempts int
	DevLogCodes bool
}

// LedgerConfig names the key prefixes used by the Redis-backed stores.
// SweepInterval paces [Engine.RunSweeper] over the in-memory stores; zero
// disables it.
type LedgerConfig struct {
	RedisPrefix    string
	OTPRedisPrefix string
	SweepInterval  time.Duration
}

// AuditConfig defines a public type used by goShare APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goShare APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT secrets are left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			ResetTTL:   10 * time.Minute,
		},
		Password: PasswordConfig{
			Cost:        12,
			OTPHashCost: 8,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		OTP: OTPConfig{
			TTL:         10 * time.Minute,
			Digits:      6,
			MaxAttempts: 5,
			DevLogCodes: false,
		},
		Ledger: LedgerConfig{
			RedisPrefix:    "grt",
			OTPRedisPrefix: "gso",
			SweepInterval:  5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.ResetTTL <= 0 {
		return errors.New("JWT ResetTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if len(c.JWT.AccessSecret) < 16 {
		return errors.New("JWT AccessSecret must be at least 16 bytes")
	}
	if len(c.JWT.RefreshSecret) < 16 {
		return errors.New("JWT RefreshSecret must be at least 16 bytes")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost {
		return errors.New("Password Cost is outside the bcrypt range")
	}
	if c.Password.OTPHashCost < bcrypt.MinCost || c.Password.OTPHashCost > bcrypt.MaxCost {
		return errors.New("Password OTPHashCost is outside the bcrypt range")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.MaxAttempts < 0 {
		return errors.New("OTP MaxAttempts must be >= 0")
	}

	// Ledger
	if c.Ledger.SweepInterval < 0 {
		return errors.New("Ledger SweepInterval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
