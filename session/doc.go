// Package session issues, rotates and revokes the access/refresh pair of one
// subject.
//
// # State machine
//
// Per subject: NoSession → Active(r1) → Active(r2) → ... → Revoked. [Service.Login]
// overwrites whatever refresh record exists, so concurrent logins for the same
// subject leave only the last one usable. [Service.Refresh] rotates on every use
// through an atomic compare-and-swap. Replaying a token that a refresh rotated out
// revokes the record and reports [ErrRefreshReuse] alongside
// [ErrInvalidRefreshToken]. Any other stale or made-up token is simply invalid and
// leaves the current one working.
//
// # Architecture boundaries
//
// The service does not read accounts. [Service.Refresh] asks its caller, through a
// [ReissueFunc], for the subject's live role and version, and only after the
// presented token matched the stored record.
//
// # What this package must NOT do
//
//   - Import eduAuth (no upward imports).
//   - Persist access tokens.
package session
