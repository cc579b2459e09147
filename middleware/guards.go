package middleware

import "net/http"

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, MessageUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers holding none of
// roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, MessageUnauthorized)
				return
			}
			if !id.HasRole(roles...) {
				WriteError(w, http.StatusForbidden, MessageForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
