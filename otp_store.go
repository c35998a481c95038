package goShare

import (
	"context"
	"time"

	"github.com/MrEthical07/goShare/internal/stores"
	"github.com/redis/go-redis/v9"
)

// OTPStore holds at most one password-reset challenge per email.
//
// Put overwrites any prior challenge. Consume calls matches with the stored
// code hash and, on a match, marks the challenge used so it cannot be
// consumed again. Implementations report outcomes with the ErrChallenge*
// sentinels below.
type OTPStore interface {
	Put(ctx context.Context, email, codeHash string, ttl time.Duration) error
	Consume(ctx context.Context, email string, maxAttempts int, matches func(codeHash string) (bool, error)) error
}

var (
	// ErrChallengeNotFound reports no live challenge (never issued, already used, or purged).
	ErrChallengeNotFound = stores.ErrChallengeNotFound
	// ErrChallengeExpired reports a challenge found past its expiry.
	ErrChallengeExpired = stores.ErrChallengeExpired
	// ErrChallengeMismatch reports a wrong code against a live challenge.
	ErrChallengeMismatch = stores.ErrChallengeMismatch
	// ErrChallengeAttemptsExceeded reports a challenge discarded after too many wrong codes.
	ErrChallengeAttemptsExceeded = stores.ErrChallengeAttemptsExceeded
)

// NewMemoryOTPStore returns a process-local OTPStore. Challenges do not
// survive a restart.
func NewMemoryOTPStore() OTPStore {
	return stores.NewMemoryOTPStore()
}

// NewRedisOTPStore returns an OTPStore persisted in Redis under prefix.
func NewRedisOTPStore(redisClient redis.UniversalClient, prefix string) OTPStore {
	return stores.NewRedisOTPStore(redisClient, prefix)
}
