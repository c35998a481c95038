package session

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is a process-local [Ledger]. Sessions do not survive a restart.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[[32]byte]Record
	now     func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[[32]byte]Record),
		now:     time.Now,
	}
}

// Record describes the record operation and its observable behavior.
func (l *MemoryLedger) Record(ctx context.Context, token, userID string, ttl time.Duration) error {
	if token == "" || userID == "" || ttl <= 0 {
		return ErrInvalidRecord
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[TokenHash(token)] = Record{
		UserID:    userID,
		ExpiresAt: expiresAt(l.now(), ttl),
	}
	return nil
}

// IsValid reports whether token is recorded for userID and not expired.
// Expired records are dropped on the way.
func (l *MemoryLedger) IsValid(ctx context.Context, token, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := TokenHash(token)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return false, nil
	}
	now := l.now()
	if now.Unix() >= rec.ExpiresAt {
		delete(l.records, key)
		return false, nil
	}
	return rec.validFor(userID, now), nil
}

// Revoke removes token and reports whether it was present.
func (l *MemoryLedger) Revoke(_ context.Context, token string) (bool, error) {
	key := TokenHash(token)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.records[key]
	delete(l.records, key)
	return ok, nil
}

// Sweep drops every expired record and returns how many were removed.
func (l *MemoryLedger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().Unix()
	removed := 0
	for key, rec := range l.records {
		if now >= rec.ExpiresAt {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired ones included.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
