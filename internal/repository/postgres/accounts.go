package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const accountColumns = `id, name, email, password_hash, role, is_email_verified, refresh_token,
       password_reset_attempts, password_reset_lock_until, created_at, updated_at`

var _ authcore.AccountStore = (*AccountRepository)(nil)

// AccountRepository is the PostgreSQL authcore.AccountStore.
type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*authcore.Account, error) {
	var (
		a    authcore.Account
		role string
		lock sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &a.IsEmailVerified, &a.RefreshToken,
		&a.PasswordResetAttempts, &lock, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Role = authcore.Role(role)
	if lock.Valid {
		t := lock.Time
		a.PasswordResetLockUntil = &t
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *authcore.Account) error {
	query :=
		`INSERT INTO accounts (id, name, email, password_hash, role, is_email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Email, account.PasswordHash, string(account.Role),
		account.IsEmailVerified, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authcore.ErrDuplicateAccount
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (*authcore.Account, error) {
	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, lookupError(err)
	}
	return acct, nil
}

// lookupError maps a failed single-account statement. An id that is not a
// valid uuid cannot match a row, so it reads as not found.
func lookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
		return authcore.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func (r *AccountRepository) List(ctx context.Context) ([]authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, email`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []authcore.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// exec runs an UPDATE or DELETE that targets one account by id.
func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return lookupError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (r *AccountRepository) ResetPassword(ctx context.Context, id, hash string, revokeSessions bool) error {
	query :=
		`UPDATE accounts SET password_hash = $2,
		 password_reset_attempts = 0, password_reset_lock_until = NULL,
		 refresh_token = CASE WHEN $3 THEN '' ELSE refresh_token END,
		 updated_at = NOW()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, hash, revokeSessions)
}

func (r *AccountRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, `UPDATE accounts SET refresh_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
}

// RotateRefreshToken swaps old for next only while old is still stored.
func (r *AccountRepository) RotateRefreshToken(ctx context.Context, id, old, next string) (bool, error) {
	query :=
		`UPDATE accounts SET refresh_token = $3, updated_at = NOW()
		 WHERE id = $1 AND refresh_token = $2
		 `
	res, err := r.db.ExecContext(ctx, query, id, old, next)
	if err != nil {
		if isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *AccountRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE accounts SET refresh_token = '', updated_at = NOW() WHERE id = $1`, id)
}

func (r *AccountRepository) IncrementResetAttempts(ctx context.Context, id string, lockThreshold int, lockUntil time.Time) (*authcore.Account, error) {
	query :=
		`UPDATE accounts SET password_reset_attempts = password_reset_attempts + 1,
		 password_reset_lock_until = CASE WHEN password_reset_attempts + 1 >= $2 THEN $3 ELSE password_reset_lock_until END,
		 updated_at = NOW()
		 WHERE id = $1
		 RETURNING ` + accountColumns

	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, id, lockThreshold, lockUntil))
	if err != nil {
		return nil, lookupError(err)
	}
	return acct, nil
}

func (r *AccountRepository) ClearResetLock(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts SET password_reset_attempts = 0, password_reset_lock_until = NULL, updated_at = NOW()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id)
}

func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE accounts SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, role authcore.Role) error {
	return r.exec(ctx, `UPDATE accounts SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}
