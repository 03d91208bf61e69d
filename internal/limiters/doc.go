// Package limiters provides Redis fixed-window limiters for registration and
// email operations (forgot-password, OTP and verification-link resends).
//
// # Window semantics
//
// INCR on every hit, EXPIRE on the first hit of a window, reject once the
// count exceeds MaxAttempts. Rejections report the window's remaining PTTL so
// clients can render a countdown. Key prefixes:
//   - lreg: - registration per client key
//   - lem:  - email operations per client key
//
// All limiters are nil-safe: calling Allow on a nil receiver always allows.
//
// # What this package must NOT do
//
//   - Resolve accounts or decide exemptions; the engine does that.
//   - Import authcore or any sibling internal package.
package limiters
