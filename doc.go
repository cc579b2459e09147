// Package eduAuth is the authentication, session-token and rate-limiting core of
// the course marketplace.
//
// An [Engine] is assembled once with [New] and [Builder.Build] and then shared by
// every request:
//
//	engine, err := eduAuth.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithAccountStore(store).
//		WithLogger(logger).
//		Build()
//
// Access tokens are short-lived JWTs carrying subject, role and account version.
// Refresh tokens are opaque, stored in Redis as digests, and rotated on every use.
// [Engine.Authenticate] verifies a token and resolves the live identity through a
// Redis read-through cache, rejecting deleted accounts and tokens minted before
// the latest account mutation.
//
// Every account mutation goes through the engine ([Engine.ChangePassword],
// [Engine.ChangeRole], [Engine.DeleteAccount], [Engine.RestoreAccount]) or is
// followed by [Engine.InvalidateIdentity]. HTTP integration lives in the
// middleware and httpapi packages.
package eduAuth
