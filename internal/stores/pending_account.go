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
	pendingRecordVersionV1 = 1
	pendingKeyPrefix       = "pnd:"
	maxWatchRetries        = 3
)

var (
	ErrPendingNotFound         = errors.New("pending registration not found")
	ErrPendingRedisUnavailable = errors.New("pending registration redis unavailable")
)

// PendingRecord is the stored form of a registration awaiting OTP confirmation.
type PendingRecord struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	OTP          string
	OTPExpiresAt int64 // unix milliseconds
	CreatedAt    int64 // unix milliseconds
}

// PendingAccountStore persists PendingRecords keyed by email.
type PendingAccountStore struct {
	redis redis.UniversalClient
}

// NewPendingAccountStore returns a store on redisClient.
func NewPendingAccountStore(redisClient redis.UniversalClient) *PendingAccountStore {
	return &PendingAccountStore{redis: redisClient}
}

func (s *PendingAccountStore) key(email string) string {
	return pendingKeyPrefix + email
}

// Save writes record, replacing any previous one for the same email.
func (s *PendingAccountStore) Save(ctx context.Context, record *PendingRecord, ttl time.Duration) error {
	encoded, err := encodePendingRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(record.Email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

// Get loads the record for email.
func (s *PendingAccountStore) Get(ctx context.Context, email string) (*PendingRecord, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}

	record, err := decodePendingRecord(data)
	if err != nil {
		// Unreadable records are treated as absent and removed.
		_ = s.redis.Del(ctx, s.key(email)).Err()
		return nil, ErrPendingNotFound
	}
	return record, nil
}

// Delete removes the record for email. Deleting a missing record is not an error.
func (s *PendingAccountStore) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

// ReplaceOTP swaps the code and its expiry, keeping the record's TTL.
func (s *PendingAccountStore) ReplaceOTP(ctx context.Context, email, otp string, expiresAt int64) error {
	key := s.key(email)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrPendingNotFound
			}
			return err
		}

		record, err := decodePendingRecord(data)
		if err != nil {
			return ErrPendingNotFound
		}
		record.OTP = otp
		record.OTPExpiresAt = expiresAt

		encoded, err := encodePendingRecord(record)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, encoded, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrPendingNotFound):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
		}
	}

	return fmt.Errorf("%w: too much contention", ErrPendingRedisUnavailable)
}

func encodePendingRecord(record *PendingRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(pendingRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.OTPExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.Name, record.Email, record.PasswordHash, record.Role, record.OTP} {
		if len(field) > 65535 {
			return nil, errors.New("pending record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodePendingRecord(data []byte) (*PendingRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingRecordVersionV1 {
		return nil, errors.New("invalid pending record version")
	}

	record := &PendingRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.OTPExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	fields := []*string{&record.Name, &record.Email, &record.PasswordHash, &record.Role, &record.OTP}
	for _, field := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in pending record")
	}

	return record, nil
}
