// Package refresh owns the long-lived refresh credential: its opaque wire format and
// the Redis record that makes it valid.
//
// # Token format
//
// A refresh token is base64url(subject) "." base64url(32 random bytes). The subject
// half lets the refresh endpoint locate the record from the request body alone; the
// secret half is what proves possession. Redis stores only the SHA-256 digest of the
// whole token, never the token itself.
//
// # Record model
//
// Exactly one record per subject, keyed "<prefix>:<subject>": a hash with the
// current digest and the digest the last rotation replaced. [Store.Save]
// overwrites unconditionally (last login wins) and forgets any predecessor.
// [Store.Check] classifies a presented digest without changing anything, except
// that presenting the rotated-out predecessor deletes the record ([ErrReused]).
// [Store.Rotate] is an atomic compare-and-swap on the current digest. A digest
// that matches neither field, such as one superseded by a later login or one a
// caller made up, returns [ErrMismatch] and leaves the record alone.
//
// # What this package must NOT do
//
//   - Issue access tokens or know about roles.
//   - Import eduAuth, jwt, or session.
package refresh
