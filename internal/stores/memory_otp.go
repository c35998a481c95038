package stores

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryOTPStore is the in-process OTP challenge store. Challenges are lost
// on restart.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]*OTPRecord
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		records: make(map[string]*OTPRecord),
		now:     time.Now,
	}
}

// Put overwrites any prior challenge for email.
func (s *MemoryOTPStore) Put(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if email == "" || codeHash == "" || ttl <= 0 {
		return ErrInvalidChallenge
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[email] = &OTPRecord{
		CodeHash:  codeHash,
		ExpiresAt: s.now().Add(ttl).Unix(),
	}
	return nil
}

// Consume holds the store lock across matches so two concurrent
// verifications of one code cannot both succeed.
func (s *MemoryOTPStore) Consume(ctx context.Context, email string, maxAttempts int, matches MatchFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[email]
	if !ok || record.Used {
		return ErrChallengeNotFound
	}
	if s.now().Unix() >= record.ExpiresAt {
		delete(s.records, email)
		return ErrChallengeExpired
	}

	matched, err := matches(record.CodeHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeMatchFailed, err)
	}
	if !matched {
		record.Attempts++
		if maxAttempts > 0 && int(record.Attempts) >= maxAttempts {
			delete(s.records, email)
			return ErrChallengeAttemptsExceeded
		}
		return ErrChallengeMismatch
	}

	record.Used = true
	return nil
}

// Sweep drops expired and used challenges.
func (s *MemoryOTPStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	removed := 0
	for email, record := range s.records {
		if record.Used || now >= record.ExpiresAt {
			delete(s.records, email)
			removed++
		}
	}
	return removed
}
