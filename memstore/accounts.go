package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Br3achBl0ckers/authcore"
)

var _ authcore.AccountStore = (*Accounts)(nil)

// Accounts is an in-memory account store keyed by id with an email index.
type Accounts struct {
	mu      sync.RWMutex
	byID    map[string]*authcore.Account
	byEmail map[string]string
	now     func() time.Time
}

// Option customises Accounts.
type Option func(*Accounts)

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Accounts) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccounts(opts ...Option) *Accounts {
	a := &Accounts{
		byID:    make(map[string]*authcore.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func clone(a *authcore.Account) *authcore.Account {
	out := *a
	if a.PasswordResetLockUntil != nil {
		lock := *a.PasswordResetLockUntil
		out.PasswordResetLockUntil = &lock
	}
	return &out
}

func (s *Accounts) Create(_ context.Context, account *authcore.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[account.Email]; ok {
		return authcore.ErrDuplicateAccount
	}
	s.byID[account.ID] = clone(account)
	s.byEmail[account.Email] = account.ID
	return nil
}

func (s *Accounts) GetByID(_ context.Context, id string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return clone(a), nil
}

func (s *Accounts) GetByEmail(_ context.Context, email string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// List returns accounts ordered by creation time, then email.
func (s *Accounts) List(context.Context) ([]authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]authcore.Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, *clone(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// update applies fn to the stored account under the write lock.
func (s *Accounts) update(id string, fn func(a *authcore.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return authcore.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = s.now()
	return nil
}

func (s *Accounts) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(a *authcore.Account) { a.PasswordHash = hash })
}

func (s *Accounts) ResetPassword(_ context.Context, id, hash string, revokeSessions bool) error {
	return s.update(id, func(a *authcore.Account) {
		a.PasswordHash = hash
		a.PasswordResetAttempts = 0
		a.PasswordResetLockUntil = nil
		if revokeSessions {
			a.RefreshToken = ""
		}
	})
}

func (s *Accounts) SetRefreshToken(_ context.Context, id, token string) error {
	return s.update(id, func(a *authcore.Account) { a.RefreshToken = token })
}

func (s *Accounts) RotateRefreshToken(_ context.Context, id, old, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok || a.RefreshToken != old {
		return false, nil
	}
	a.RefreshToken = next
	a.UpdatedAt = s.now()
	return true, nil
}

func (s *Accounts) ClearRefreshToken(_ context.Context, id string) error {
	return s.update(id, func(a *authcore.Account) { a.RefreshToken = "" })
}

func (s *Accounts) IncrementResetAttempts(_ context.Context, id string, lockThreshold int, lockUntil time.Time) (*authcore.Account, error) {
	var out *authcore.Account
	err := s.update(id, func(a *authcore.Account) {
		a.PasswordResetAttempts++
		if a.PasswordResetAttempts >= lockThreshold {
			lock := lockUntil
			a.PasswordResetLockUntil = &lock
		}
		out = clone(a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Accounts) ClearResetLock(_ context.Context, id string) error {
	return s.update(id, func(a *authcore.Account) {
		a.PasswordResetAttempts = 0
		a.PasswordResetLockUntil = nil
	})
}

func (s *Accounts) MarkEmailVerified(_ context.Context, id string) error {
	return s.update(id, func(a *authcore.Account) { a.IsEmailVerified = true })
}

func (s *Accounts) UpdateRole(_ context.Context, id string, role authcore.Role) error {
	return s.update(id, func(a *authcore.Account) { a.Role = role })
}

func (s *Accounts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return authcore.ErrNotFound
	}
	delete(s.byEmail, a.Email)
	delete(s.byID, id)
	return nil
}
