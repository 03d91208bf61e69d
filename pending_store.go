package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Br3achBl0ckers/authcore/internal/stores"
)

// redisPendingStore adapts the Redis pending-account store to PendingStore.
type redisPendingStore struct {
	store *stores.PendingAccountStore
}

func newRedisPendingStore(s *stores.PendingAccountStore) *redisPendingStore {
	return &redisPendingStore{store: s}
}

func (p *redisPendingStore) Save(ctx context.Context, pending *PendingAccount, ttl time.Duration) error {
	rec := &stores.PendingRecord{
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         string(pending.Role),
		OTP:          pending.OTP,
		OTPExpiresAt: pending.OTPExpiresAt.UnixMilli(),
		CreatedAt:    pending.CreatedAt.UnixMilli(),
	}
	return mapPendingErr(p.store.Save(ctx, rec, ttl))
}

func (p *redisPendingStore) Get(ctx context.Context, email string) (*PendingAccount, error) {
	rec, err := p.store.Get(ctx, email)
	if err != nil {
		return nil, mapPendingErr(err)
	}
	return &PendingAccount{
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Role:         Role(rec.Role),
		OTP:          rec.OTP,
		OTPExpiresAt: time.UnixMilli(rec.OTPExpiresAt),
		CreatedAt:    time.UnixMilli(rec.CreatedAt),
	}, nil
}

func (p *redisPendingStore) Delete(ctx context.Context, email string) error {
	return mapPendingErr(p.store.Delete(ctx, email))
}

func (p *redisPendingStore) ReplaceOTP(ctx context.Context, email, otp string, expiresAt time.Time) error {
	return mapPendingErr(p.store.ReplaceOTP(ctx, email, otp, expiresAt.UnixMilli()))
}

func mapPendingErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrPendingNotFound):
		return ErrNoPendingRegistration
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
