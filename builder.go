package goShare

import (
	"context"
	"errors"

	"github.com/MrEthical07/goShare/internal"
	"github.com/MrEthical07/goShare/jwt"
	"github.com/MrEthical07/goShare/password"
	"github.com/MrEthical07/goShare/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goShare APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     CredentialStore
	ledger    session.Ledger
	otpStore  OTPStore
	auditSink AuditSink
	logger    Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects the Redis-backed refresh ledger and OTP store unless
// explicit ones are supplied.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore describes the withcredentialstore operation and its observable behavior.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithLedger describes the withledger operation and its observable behavior.
func (b *Builder) WithLedger(ledger session.Ledger) *Builder {
	b.ledger = ledger
	return b
}

// WithOTPStore describes the withotpstore operation and its observable behavior.
func (b *Builder) WithOTPStore(store OTPStore) *Builder {
	b.otpStore = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// The sink only receives events when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Without Redis and without explicit stores, Build falls back to the
// in-memory ledger and OTP store, so a restart drops every session and
// every in-flight reset.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	ledger := b.ledger
	if ledger == nil {
		if b.redis != nil {
			ledger = session.NewRedisLedger(b.redis, cfg.Ledger.RedisPrefix)
		} else {
			ledger = session.NewMemoryLedger()
		}
	}

	otpStore := b.otpStore
	if otpStore == nil {
		if b.redis != nil {
			otpStore = NewRedisOTPStore(b.redis, cfg.Ledger.OTPRedisPrefix)
		} else {
			otpStore = NewMemoryOTPStore()
		}
	}

	logger := b.logger
	if logger == nil {
		logger = nopLogger{}
	}

	ph, err := password.NewBcrypt(cfg.Password.Cost)
	if err != nil {
		return nil, err
	}
	otpHash, err := password.NewBcrypt(cfg.Password.OTPHashCost)
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		ResetTTL:      cfg.JWT.ResetTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		store:        b.store,
		ledger:       ledger,
		otpStore:     otpStore,
		passwordHash: ph,
		otpHash:      otpHash,
		jwtManager:   jm,
		logger:       logger,
		rotation:     newKeyedMutex(),
		accounts:     newKeyedMutex(),
		newOTP:       internal.NewOTP,
		now:          timeNow,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.OTP.DevLogCodes {
		logger.Warn(context.Background(), "otp dev logging enabled; reset codes will be written to the log")
	}

	b.built = true

	return engine, nil
}
