// Package middleware is the HTTP face of the eduAuth engine.
//
// [Gate] runs an explicit, ordered list of [Stage]s in front of a handler. Each
// stage either continues with a (possibly enriched) request context or halts with
// a status, JSON body and headers. The usual order is
//
//	middleware.Gate(engine,
//		middleware.ClientIP(false),
//		middleware.ExtractBearer,
//		middleware.Authenticate,
//		middleware.RateLimit(policy, middleware.KeyByIP),
//	)
//
// Authentication never halts: a missing or rejected token leaves the request
// anonymous. Route guards ([RequireAuthenticated], [RequireRole]) turn anonymity
// into 401 and a wrong role into 403. Handlers read the caller with
// [IdentityFromContext].
package middleware
