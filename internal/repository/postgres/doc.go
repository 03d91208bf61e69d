// Package postgres stores accounts in PostgreSQL through database/sql and the
// pgx stdlib driver.
//
// [AccountRepository] implements authcore.AccountStore. Refresh rotation and
// the password reset counter are single statements, so concurrent callers
// never lose updates:
//   - RotateRefreshToken: UPDATE ... WHERE refresh_token = $old
//   - IncrementResetAttempts: UPDATE ... SET attempts = attempts + 1 RETURNING
//
// Schema changes live in the embedded goose migrations and are applied by
// [Migrate].
package postgres
