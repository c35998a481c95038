package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrRedisUnavailable is an exported constant or variable used by the ledger.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidRecord is returned when a record cannot be written or decoded.
var ErrInvalidRecord = errors.New("invalid ledger record")

// Ledger tracks outstanding refresh tokens.
//
// Revoke is idempotent. Its boolean result reports whether a record was
// actually removed, which lets a caller that raced another rotation of the
// same token discover that it lost.
type Ledger interface {
	Record(ctx context.Context, token, userID string, ttl time.Duration) error
	IsValid(ctx context.Context, token, userID string) (bool, error)
	Revoke(ctx context.Context, token string) (bool, error)
}

// Record is the stored form of one ledger entry.
type Record struct {
	UserID    string
	ExpiresAt int64
}

func (r Record) validFor(userID string, now time.Time) bool {
	return r.UserID == userID && now.Unix() < r.ExpiresAt
}

// TokenHash returns the ledger key material for token.
func TokenHash(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

func tokenHashHex(token string) string {
	sum := TokenHash(token)
	return hex.EncodeToString(sum[:])
}

func expiresAt(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).Unix()
}
