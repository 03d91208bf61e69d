// Package internal contains helper utilities that are private to authcore:
// OTP generation and constant-time secret comparison.
//
// # Sub-packages
//
//   - config - environment configuration for the server binary
//   - dispatch - bounded async dispatcher shared by audit and mail delivery
//   - httpapi - chi router and JSON handlers for the /api/auth surface
//   - limiters - Redis fixed-window limiters for registration and email operations
//   - logger - slog wrapper used by binaries and the engine
//   - mailer - Notifier implementations (SMTP, log)
//   - rate - login attempt tracker with memory and Redis stores
//   - repository/postgres - Postgres account repository and migrations
//   - stores - Redis store for pending (unverified) registrations
//   - validate - email and display-name validation
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
