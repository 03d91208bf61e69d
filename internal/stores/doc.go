// Package stores provides the Redis-backed store for pending registrations:
// accounts that have submitted the sign-up form but not yet confirmed their
// OTP.
//
// # Design
//
// Each record is a versioned, binary-encoded value under pnd:<email> with a
// TTL of 24 hours from first write. Re-registering overwrites the record and
// restarts the TTL; ReplaceOTP rewrites the code inside a WATCH/MULTI
// transaction and keeps the remaining TTL.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Generate OTPs or compare them; the engine owns that.
//   - Log record contents.
package stores
