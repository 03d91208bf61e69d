// Package authcore is the authentication and session core of the
// Br3achBl0ckers learning platform: password hashing, OTP- or link-gated
// email verification, access/refresh token issuance and rotation, the
// password reset lifecycle, and the abuse guard that throttles login,
// registration and mail-sending operations per client.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [AccountStore] and [Notifier] seams and value types ([Session],
// [PublicUser], [Claims]). Token signing, hashing, rate accounting and the
// Redis-backed pending store live in sub-packages and internal/.
//
// # What this package must NOT do
//
//   - Speak HTTP. Transports live in internal/httpapi and middleware.
//   - Log or audit plaintext passwords, OTPs, tokens or hashes.
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path and never touches a store. Login, Refresh
// and the registration operations make a bounded number of store calls.
package authcore
