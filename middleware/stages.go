package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	eduAuth "github.com/MrEthical07/eduAuth"
)

type tokenContextKey struct{}
type identityContextKey struct{}

const (
	headerRequestID     = "X-Request-ID"
	headerForwardedFor  = "X-Forwarded-For"
	anonymousSubjectKey = "anonymous"
)

// ClientIP records the caller's IP and a request ID on the context. With
// trustForwarded the first X-Forwarded-For entry wins over RemoteAddr; enable it
// only behind a proxy that overwrites the header.
func ClientIP(trustForwarded bool) Stage {
	return func(_ Engine, r *http.Request) Result {
		ip := remoteIP(r.RemoteAddr)
		if trustForwarded {
			if fwd := r.Header.Get(headerForwardedFor); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if parsed := net.ParseIP(strings.TrimSpace(first)); parsed != nil {
					ip = parsed.String()
				}
			}
		}
		ctx := eduAuth.WithClientIP(r.Context(), ip)
		ctx = eduAuth.WithRequestID(ctx, r.Header.Get(headerRequestID))
		return Continue(ctx)
	}
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// ExtractBearer stores the bearer token, if any, for Authenticate.
func ExtractBearer(_ Engine, r *http.Request) Result {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Continue(r.Context())
	}
	return Continue(context.WithValue(r.Context(), tokenContextKey{}, token))
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate resolves the extracted token to an identity. Failures leave the
// request anonymous; the engine logs the reason.
func Authenticate(engine Engine, r *http.Request) Result {
	token, ok := r.Context().Value(tokenContextKey{}).(string)
	if !ok || engine == nil {
		return Continue(r.Context())
	}
	id, err := engine.Authenticate(r.Context(), token)
	if err != nil {
		return Continue(r.Context())
	}
	return Continue(context.WithValue(r.Context(), identityContextKey{}, id))
}

// KeyFunc derives rate-limit key parts from a request.
type KeyFunc func(r *http.Request) []string

// KeyByIP keys on the client IP.
func KeyByIP(r *http.Request) []string {
	return []string{requestIP(r)}
}

// KeyByIPAndSubject keys on the client IP and the authenticated subject.
func KeyByIPAndSubject(r *http.Request) []string {
	subject := anonymousSubjectKey
	if id, ok := IdentityFromContext(r.Context()); ok {
		subject = id.Subject
	}
	return []string{requestIP(r), subject}
}

func requestIP(r *http.Request) string {
	if ip := eduAuth.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return remoteIP(r.RemoteAddr)
}

// RateLimit counts the request against policy and halts with 429 when the budget
// is spent. A limiter outage lets requests through.
func RateLimit(policy eduAuth.Policy, key KeyFunc) Stage {
	return func(engine Engine, r *http.Request) Result {
		if engine == nil {
			return Continue(r.Context())
		}
		decision := engine.TryConsume(r.Context(), policy, key(r)...)
		if decision.Allowed {
			return Continue(r.Context())
		}

		seconds := int64(decision.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		headers := http.Header{}
		headers.Set("Retry-After", strconv.FormatInt(seconds, 10))
		return Halt(http.StatusTooManyRequests, ErrorBody{
			Success:    false,
			Message:    MessageTooManyRequests,
			RetryAfter: seconds,
		}, headers)
	}
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (*eduAuth.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*eduAuth.Identity)
	return id, ok && id != nil
}
