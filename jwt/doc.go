// Package jwt issues and verifies the short-lived access credentials used on every
// authenticated request.
//
// # Token shape
//
// Access tokens are compact JWS values signed with HS256 (default) or Ed25519. The
// signature covers the subject (account ID), role, account version ("av"), issuer,
// audience, issued-at and expiry. Tokens are never persisted server-side; validity is
// purely cryptographic plus time-based, so the lifetime is intentionally short.
//
// # Failure contract
//
// [Codec.Verify] reports every failure as [ErrInvalidToken]. The wrapped [Reason]
// (malformed, signature, expired, algorithm, claims) exists for logs only; HTTP layers
// must answer all of them identically so callers cannot tell which check failed.
//
// # What this package must NOT do
//
//   - Perform I/O or consult any store (revocation is not its job).
//   - Import eduAuth or any sibling package.
package jwt
