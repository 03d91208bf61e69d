// Package jwt issues and verifies the HS256 tokens used by authcore: access,
// refresh, password-reset and email-verification.
//
// Each purpose has its own secret and a typ claim; [NewManager] refuses
// configurations where two purposes share a secret, and the parser rejects a
// token presented for the wrong purpose even when the signature verifies.
package jwt
