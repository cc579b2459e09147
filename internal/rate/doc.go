// Package rate implements the fixed-window request limiter shared by every
// rate-limited route.
//
// # Window semantics
//
// One counter per (policy, key parts). The first hit in a window creates the key
// and sets its TTL to the window; later hits only increment. INCR and PEXPIRE run
// in one Lua script, so a crash between them cannot leave a counter without a TTL,
// and a counter found without one is repaired on the next hit.
//
// Keys look like "ratelimit:<policy>:<len>:<part>:<len>:<part>...". Parts are
// length-prefixed so user-controlled values containing ':' cannot collide.
//
// # Failure mode
//
// The limiter fails open: when Redis errors or times out the request is allowed,
// the failure is logged at error level, and the store-error hook fires.
//
// # What this package must NOT do
//
//   - Decide which routes are limited (that is the gate's job).
//   - Be imported outside the eduAuth module.
package rate
