package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpRecordVersionV1 = 1
)

var (
	ErrChallengeNotFound         = errors.New("otp challenge not found")
	ErrChallengeExpired          = errors.New("otp challenge expired")
	ErrChallengeMismatch         = errors.New("otp challenge mismatch")
	ErrChallengeAttemptsExceeded = errors.New("otp challenge attempts exceeded")
	ErrChallengeRedisUnavailable = errors.New("otp challenge redis unavailable")
	ErrInvalidChallenge          = errors.New("invalid otp challenge")
	ErrChallengeMatchFailed      = errors.New("otp challenge match failed")
)

// MatchFunc reports whether the presented code matches the stored hash.
// A non-nil error aborts the consumption and leaves the record untouched.
type MatchFunc = func(codeHash string) (bool, error)

// OTPRecord is the stored form of one challenge.
type OTPRecord struct {
	CodeHash  string
	ExpiresAt int64
	Attempts  uint16
	Used      bool
}

// RedisOTPStore keeps one OTP challenge per email under <prefix>:<email>.
type RedisOTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisOTPStore(redisClient redis.UniversalClient, prefix string) *RedisOTPStore {
	if prefix == "" {
		prefix = "gso"
	}
	return &RedisOTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisOTPStore) key(email string) string {
	return s.prefix + ":" + email
}

// Put overwrites any prior challenge for email.
func (s *RedisOTPStore) Put(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	if email == "" || codeHash == "" || ttl <= 0 {
		return ErrInvalidChallenge
	}

	encoded, err := encodeOTPRecord(&OTPRecord{
		CodeHash:  codeHash,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
	return nil
}

// Consume verifies a code against the challenge for email and flags it used
// on success. A used record is kept until its TTL elapses so a replay
// reports ErrChallengeNotFound rather than racing a fresh Put.
func (s *RedisOTPStore) Consume(ctx context.Context, email string, maxAttempts int, matches MatchFunc) error {
	const maxRetries = 4
	key := s.key(email)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrChallengeNotFound
				}
				return err
			}

			record, err := decodeOTPRecord(data)
			if err != nil {
				return err
			}
			if record.Used {
				return ErrChallengeNotFound
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			ok, err := matches(record.CodeHash)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrChallengeMatchFailed, err)
			}

			if !ok {
				record.Attempts++
				if maxAttempts > 0 && int(record.Attempts) >= maxAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrChallengeAttemptsExceeded
				}

				updated, err := encodeOTPRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeMismatch
			}

			record.Used = true
			updated, err := encodeOTPRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrChallengeNotFound),
				errors.Is(err, ErrChallengeExpired),
				errors.Is(err, ErrChallengeMismatch),
				errors.Is(err, ErrChallengeAttemptsExceeded),
				errors.Is(err, ErrInvalidChallenge),
				errors.Is(err, ErrChallengeMatchFailed):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
			}
		}
		return nil
	}

	return ErrChallengeNotFound
}

func encodeOTPRecord(record *OTPRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)
	if record.Used {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.CodeHash) > 65535 {
		return nil, fmt.Errorf("%w: code hash too long", ErrInvalidChallenge)
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.CodeHash))); err != nil {
		return nil, err
	}
	buf.WriteString(record.CodeHash)

	return buf.Bytes(), nil
}

func decodeOTPRecord(data []byte) (*OTPRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	if version != otpRecordVersionV1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidChallenge, version)
	}

	used, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}

	record := &OTPRecord{Used: used == 1}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}

	var hashLen uint16
	if err := binary.Read(reader, binary.BigEndian, &hashLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	hash := make([]byte, hashLen)
	if _, err := io.ReadFull(reader, hash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	record.CodeHash = string(hash)

	return record, nil
}
