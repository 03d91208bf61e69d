// Package middleware exposes HTTP middleware that authorizes requests with
// authcore access tokens.
//
// # Guards
//
//   - [Guard] - requires a valid Bearer token and stores its claims.
//   - [RequireVerified] - rejects accounts with an unverified email.
//   - [RequireRole] / [RequireSuper] - admit only the given roles.
//
// Guard reads the Authorization header, calls Engine.ValidateAccess and
// injects the validated claims and raw token into the request context.
// Failures are JSON bodies of the form {"msg": "..."}.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself - token checks are delegated to ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the account store.
//   - Make decisions beyond the claims returned by ValidateAccess.
package middleware
