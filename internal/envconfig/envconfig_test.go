package envconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromEnvironment(t *testing.T) {
	s, err := Load(Source{
		Lookup: mapLookup(map[string]string{
			"EDUAUTH_JWT_SECRET":    testSecret,
			"EDUAUTH_DATABASE_URL":  "postgres://u:p@db:5432/edu",
			"EDUAUTH_REDIS_ADDR":    "redis:6379",
			"EDUAUTH_REDIS_DB":      "2",
			"EDUAUTH_ACCESS_TTL":    "5m",
			"EDUAUTH_LOGIN_LIMIT":   "3",
			"EDUAUTH_AUDIT_ENABLED": "false",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, []byte(testSecret), s.Auth.JWT.Secret)
	assert.Equal(t, "postgres://u:p@db:5432/edu", s.DatabaseURL)
	assert.Equal(t, "redis:6379", s.RedisAddr)
	assert.Equal(t, 2, s.RedisDB)
	assert.Equal(t, 5*time.Minute, s.Auth.JWT.AccessTTL)
	assert.Equal(t, 3, s.Auth.RateLimit.Login.Limit)
	assert.False(t, s.Auth.Audit.Enabled)
	assert.Equal(t, ":8080", s.HTTPAddr)
}

func TestPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	path := writeEnvFile(t, "EDUAUTH_HTTP_ADDR=:7000\nEDUAUTH_JWT_SECRET="+testSecret+"\nEDUAUTH_DATABASE_URL=postgres://file\n")

	s, err := Load(Source{
		EnvFile: path,
		Lookup:  mapLookup(map[string]string{"EDUAUTH_HTTP_ADDR": ":7100"}),
		Args:    []string{"-addr", ":7200"},
	})
	require.NoError(t, err)
	assert.Equal(t, ":7200", s.HTTPAddr)
	assert.Equal(t, "postgres://file", s.DatabaseURL)

	s, err = Load(Source{
		EnvFile: path,
		Lookup:  mapLookup(map[string]string{"EDUAUTH_HTTP_ADDR": ":7100"}),
	})
	require.NoError(t, err)
	assert.Equal(t, ":7100", s.HTTPAddr)

	s, err = Load(Source{EnvFile: path, Lookup: mapLookup(nil)})
	require.NoError(t, err)
	assert.Equal(t, ":7000", s.HTTPAddr)
}

func TestMissingEnvFileIgnored(t *testing.T) {
	_, err := Load(Source{
		EnvFile: filepath.Join(t.TempDir(), "absent.env"),
		Lookup:  mapLookup(nil),
		Args:    []string{"-dev"},
	})
	require.NoError(t, err)
}

func TestDevModeGeneratesSecret(t *testing.T) {
	s, err := Load(Source{Lookup: mapLookup(nil), Args: []string{"-dev"}})
	require.NoError(t, err)
	assert.True(t, s.Dev)
	assert.Len(t, s.Auth.JWT.Secret, 32)
	assert.Empty(t, s.DatabaseURL)
}

func TestSecretFlag(t *testing.T) {
	s, err := Load(Source{
		Lookup: mapLookup(map[string]string{"EDUAUTH_JWT_SECRET": "ignored-because-flag-wins-000000000"}),
		Args:   []string{"-dev", "-secret", testSecret},
	})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]byte(testSecret), s.Auth.JWT.Secret))
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"no database outside dev", map[string]string{"EDUAUTH_JWT_SECRET": testSecret}, nil},
		{"no secret outside dev", map[string]string{"EDUAUTH_DATABASE_URL": "postgres://x"}, nil},
		{"bad duration", map[string]string{"EDUAUTH_ACCESS_TTL": "soon"}, []string{"-dev"}},
		{"bad integer", map[string]string{"EDUAUTH_LOGIN_LIMIT": "many"}, []string{"-dev"}},
		{"bad bool", map[string]string{"EDUAUTH_DEV": "maybe"}, nil},
		{"bad log level", nil, []string{"-dev", "-log-level", "loud"}},
		{"unknown flag", nil, []string{"-dev", "-nope"}},
		{"store timeout too long", map[string]string{"EDUAUTH_STORE_TIMEOUT": "5s"}, []string{"-dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Source{Lookup: mapLookup(tt.env), Args: tt.args})
			require.ErrorIs(t, err, ErrInvalidSetting)
		})
	}
}
