package rate

import (
	"strconv"
	"strings"
	"time"
)

const keyPrefix = "ratelimit"

// Policy is a named fixed-window budget.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Predefined policies. Login, refresh and the default budget key by client IP;
// sensitive account operations key by IP and subject.
var (
	LoginPolicy     = Policy{Name: "login", Limit: 10, Window: time.Minute}
	RefreshPolicy   = Policy{Name: "refresh", Limit: 30, Window: time.Minute}
	SensitivePolicy = Policy{Name: "sensitive", Limit: 10, Window: time.Minute}
	DefaultPolicy   = Policy{Name: "default", Limit: 100, Window: time.Minute}
)

// Valid reports whether the policy can be enforced.
func (p Policy) Valid() bool {
	return p.Name != "" && !strings.Contains(p.Name, ":") && p.Limit > 0 && p.Window > 0
}

// Key builds the counter key for policy and parts.
func Key(policy Policy, parts ...string) string {
	size := len(keyPrefix) + 1 + len(policy.Name)
	for _, part := range parts {
		size += len(part) + 6
	}

	var b strings.Builder
	b.Grow(size)
	b.WriteString(keyPrefix)
	b.WriteByte(':')
	b.WriteString(policy.Name)
	for _, part := range parts {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
