// Package identity is the read-through cache of authenticated-identity records.
//
// # Consistency
//
// Entries live under "<prefix>:<subject>" with a TTL. A per-subject generation
// counter ("<prefix>:gen:<subject>") is bumped by every [Cache.Invalidate] in the
// same MULTI/EXEC that deletes the entry. A miss reads the generation before asking
// the [Loader], and the populate script only writes if the generation is unchanged.
// A lookup racing with a mutation can therefore return the old record once, but can
// never park it in the cache after the invalidation.
//
// # Failure mode
//
// The cache fails closed: a Redis error, timeout, or cancellation on the read path
// returns [ErrStoreUnavailable], and callers treat the request as unauthenticated.
package identity
