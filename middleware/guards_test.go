package middleware

import (
	"net/http"
	"testing"

	eduAuth "github.com/MrEthical07/eduAuth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireAuthenticated(t *testing.T) {
	engine := newFakeEngine()
	h := Gate(engine, ExtractBearer, Authenticate)(RequireAuthenticated(okHandler))

	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	} else {
		var body ErrorBody
		decodeBody(t, rec, &body)
		if body.Success || body.Message != MessageUnauthorized {
			t.Fatalf("unexpected body %+v", body)
		}
	}
	if rec := serve(h, "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged: expected 401, got %d", rec.Code)
	}
	if rec := serve(h, "user-token"); rec.Code != http.StatusNoContent {
		t.Fatalf("user: expected 204, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine := newFakeEngine()
	h := Gate(engine, ExtractBearer, Authenticate)(RequireRole(eduAuth.RoleAdmin)(okHandler))

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"user-token", http.StatusForbidden},
		{"admin-token", http.StatusNoContent},
	}
	for _, tt := range tests {
		rec := serve(h, tt.token)
		if rec.Code != tt.want {
			t.Fatalf("token %q: expected %d, got %d", tt.token, tt.want, rec.Code)
		}
	}
}

func TestRequireRoleAcceptsAnyListed(t *testing.T) {
	engine := newFakeEngine()
	h := Gate(engine, ExtractBearer, Authenticate)(RequireRole(eduAuth.RoleInstructor, eduAuth.RoleUser)(okHandler))

	if rec := serve(h, "user-token"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
