package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

type apiTest struct {
	engine  *eduAuth.Engine
	handler http.Handler
}

func newAPITest(t *testing.T) apiTest {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := eduAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	engine, err := eduAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(accounts.NewMemory()).
		WithLogger(logging.Nop()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return apiTest{engine: engine, handler: New(engine, logging.Nop(), Options{})}
}

func (at apiTest) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	at.handler.ServeHTTP(rec, req)
	return rec
}

func (at apiTest) register(t *testing.T, email string) string {
	t.Helper()
	rec := at.do(t, http.MethodPost, "/api/auth/register", "", credentialsRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.NotEmpty(t, out.Data["id"])
	return out.Data["id"]
}

func (at apiTest) login(t *testing.T, email, password string) eduAuth.TokenPair {
	t.Helper()
	rec := at.do(t, http.MethodPost, "/api/auth/login", "", credentialsRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair eduAuth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body
}

func TestUserCanReachUserRoutesButNotAdminRoutes(t *testing.T) {
	at := newAPITest(t)
	id := at.register(t, "learner@example.com")
	pair := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodGet, "/api/account/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Data eduAuth.Identity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, id, me.Data.Subject)
	assert.Equal(t, eduAuth.RoleUser, me.Data.Role)

	rec = at.do(t, http.MethodDelete, "/api/admin/accounts/"+id, pair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, middleware.MessageForbidden, decodeError(t, rec).Message)

	rec = at.do(t, http.MethodGet, "/api/account/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimitedAfterTenAttempts(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")

	for i := 0; i < 10; i++ {
		rec := at.do(t, http.MethodPost, "/api/auth/login", "", credentialsRequest{Email: "learner@example.com", Password: "wrong-password"})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := at.do(t, http.MethodPost, "/api/auth/login", "", credentialsRequest{Email: "learner@example.com", Password: testPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeError(t, rec)
	assert.Greater(t, body.RetryAfter, int64(0))

	header, err := strconv.ParseInt(rec.Header().Get("Retry-After"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, body.RetryAfter, header)
}

func TestPasswordChangeRejectsOldAccessToken(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")
	pair := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodPut, "/api/account/password", pair.AccessToken, changePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "a-brand-new-passphrase",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = at.do(t, http.MethodGet, "/api/account/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fresh := at.login(t, "learner@example.com", "a-brand-new-passphrase")
	rec = at.do(t, http.MethodGet, "/api/account/me", fresh.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordChangeWrongCurrent(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")
	pair := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodPut, "/api/account/password", pair.AccessToken, changePasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "a-brand-new-passphrase",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidCredentials, decodeError(t, rec).Message)
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")
	pair := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodPost, "/api/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidRefresh, decodeError(t, rec).Message)
}

func TestRefreshRotates(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")
	pair := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var next eduAuth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	rec = at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")

	cases := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"duplicate", credentialsRequest{Email: "LEARNER@example.com", Password: testPassword}, http.StatusConflict, msgAccountExists},
		{"bad email", credentialsRequest{Email: "learner.example.com", Password: testPassword}, http.StatusBadRequest, msgInvalidEmail},
		{"short password", credentialsRequest{Email: "other@example.com", Password: "x"}, http.StatusBadRequest, msgPasswordPolicy},
		{"unknown field", map[string]string{"email": "other@example.com", "password": testPassword, "role": "ADMIN"}, http.StatusBadRequest, msgBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := at.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeError(t, rec).Message)
		})
	}
}

func TestAdminDeleteAndRestore(t *testing.T) {
	at := newAPITest(t)
	adminID := at.register(t, "admin@example.com")
	require.NoError(t, at.engine.ChangeRole(context.Background(), adminID, eduAuth.RoleAdmin))
	admin := at.login(t, "admin@example.com", testPassword)

	learnerID := at.register(t, "learner@example.com")
	learner := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodDelete, "/api/admin/accounts/"+learnerID, admin.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = at.do(t, http.MethodGet, "/api/account/me", learner.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = at.do(t, http.MethodPost, "/api/auth/login", "", credentialsRequest{Email: "learner@example.com", Password: testPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = at.do(t, http.MethodPost, "/api/admin/accounts/"+learnerID+"/restore", admin.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	at.login(t, "learner@example.com", testPassword)

	rec = at.do(t, http.MethodDelete, "/api/admin/accounts/no-such-account", admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminChangeRole(t *testing.T) {
	at := newAPITest(t)
	adminID := at.register(t, "admin@example.com")
	require.NoError(t, at.engine.ChangeRole(context.Background(), adminID, eduAuth.RoleAdmin))
	admin := at.login(t, "admin@example.com", testPassword)
	learnerID := at.register(t, "learner@example.com")

	rec := at.do(t, http.MethodPut, "/api/admin/accounts/"+learnerID+"/role", admin.AccessToken, changeRoleRequest{Role: "OWNER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = at.do(t, http.MethodPut, "/api/admin/accounts/"+learnerID+"/role", admin.AccessToken, changeRoleRequest{Role: eduAuth.RoleInstructor})
	require.Equal(t, http.StatusNoContent, rec.Code)

	instructor := at.login(t, "learner@example.com", testPassword)
	rec = at.do(t, http.MethodGet, "/api/account/me", instructor.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Data eduAuth.Identity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, eduAuth.RoleInstructor, me.Data.Role)
}

func TestMetricsRoute(t *testing.T) {
	at := newAPITest(t)
	h := New(at.engine, nil, Options{Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	at.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecondLoginKeepsOnlyNewestRefreshToken(t *testing.T) {
	at := newAPITest(t)
	at.register(t, "learner@example.com")
	first := at.login(t, "learner@example.com", testPassword)
	second := at.login(t, "learner@example.com", testPassword)

	rec := at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = at.do(t, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: second.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
