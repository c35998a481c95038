package session

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

const recordFormatVersionV1 = 1

// RedisLedger is a [Ledger] persisted in Redis. Each record lives under
// <prefix>:<sha256(token) hex> with a TTL equal to the token lifetime.
type RedisLedger struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisLedger describes the newredisledger operation and its observable behavior.
func NewRedisLedger(redisClient redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "gsr"
	}
	return &RedisLedger{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *RedisLedger) key(token string) string {
	return l.prefix + ":" + tokenHashHex(token)
}

// Record describes the record operation and its observable behavior.
func (l *RedisLedger) Record(ctx context.Context, token, userID string, ttl time.Duration) error {
	if token == "" || userID == "" || ttl <= 0 {
		return ErrInvalidRecord
	}

	encoded, err := EncodeRecord(Record{UserID: userID, ExpiresAt: expiresAt(time.Now(), ttl)})
	if err != nil {
		return err
	}

	if err := l.redis.Set(ctx, l.key(token), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsValid describes the isvalid operation and its observable behavior.
func (l *RedisLedger) IsValid(ctx context.Context, token, userID string) (bool, error) {
	data, err := l.redis.Get(ctx, l.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return false, err
	}
	return rec.validFor(userID, time.Now()), nil
}

// Revoke deletes the record; DEL is atomic so at most one caller observes removed=true.
func (l *RedisLedger) Revoke(ctx context.Context, token string) (bool, error) {
	n, err := l.redis.Del(ctx, l.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// EncodeRecord serializes rec in the v1 binary layout:
// version(1) | expiresAt(8, big endian) | len(userID)(1) | userID.
func EncodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}

	if rec.UserID == "" || len(rec.UserID) > 255 {
		return nil, fmt.Errorf("%w: user id length %d", ErrInvalidRecord, len(rec.UserID))
	}
	buf.WriteByte(byte(len(rec.UserID)))
	buf.WriteString(rec.UserID)

	return buf.Bytes(), nil
}

// DecodeRecord parses a record produced by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if version != recordFormatVersionV1 {
		return Record{}, fmt.Errorf("%w: unsupported ledger schema version %d", ErrInvalidRecord, version)
	}

	var rec Record
	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.UserID = string(userID)

	return rec, nil
}
