package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDotenv(t *testing.T, body string) {
	t.Helper()
	orig := dotenvFile
	t.Cleanup(func() { dotenvFile = orig })
	path := filepath.Join(t.TempDir(), ".env")
	if body != "" {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	dotenvFile = path
}

func Test_parseEnv(t *testing.T) {
	t.Run("variables override config", func(t *testing.T) {
		useDotenv(t, "")
		t.Setenv("PORT", "8081")
		t.Setenv("APP_ENV", "production")
		t.Setenv("POSTGRES_URI", "postgres://env")
		t.Setenv("JWT_SECRET", "env-secret")
		t.Setenv("JWT_EXPIRES_IN", "2d")
		t.Setenv("RESET_TOKEN_EXPIRES_IN", "45m")
		t.Setenv("BCRYPT_COST", "11")
		t.Setenv("EXPOSE_RESET_TOKEN", "false")

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseEnv(cfg))

		assert.Equal(t, ":8081", cfg.HTTPAddr)
		assert.Equal(t, EnvProduction, cfg.Environment)
		assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
		assert.Equal(t, "env-secret", cfg.SecretKey)
		assert.Equal(t, 48*time.Hour, cfg.TokenValidityDuration)
		assert.Equal(t, 45*time.Minute, cfg.ResetTokenValidityDuration)
		assert.Equal(t, 11, cfg.PasswordHashCost)
		assert.False(t, cfg.ExposeResetToken)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURI, "unset variables keep the previous value")
	})

	t.Run("HTTP_ADDR wins over PORT", func(t *testing.T) {
		useDotenv(t, "")
		t.Setenv("PORT", "8081")
		t.Setenv("HTTP_ADDR", "127.0.0.1:9999")

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseEnv(cfg))
		assert.Equal(t, "127.0.0.1:9999", cfg.HTTPAddr)
	})

	t.Run("dotenv file is read", func(t *testing.T) {
		useDotenv(t, "REDIS_URI=redis://dotenv:6379\nFRONTEND_URL=https://front.example\n")
		t.Cleanup(func() {
			_ = os.Unsetenv("REDIS_URI")
			_ = os.Unsetenv("FRONTEND_URL")
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseEnv(cfg))
		assert.Equal(t, "redis://dotenv:6379", cfg.RedisURI)
		assert.Equal(t, "https://front.example", cfg.FrontendURL)
	})

	t.Run("bad duration is an error", func(t *testing.T) {
		useDotenv(t, "")
		t.Setenv("RATE_LIMIT_WINDOW", "forever")

		cfg := &Config{}
		cfg.LoadDefaults()
		require.Error(t, parseEnv(cfg))
	})
}

func Test_parseEnv_ExposeResetTokenFollowsEnvironment(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		expose bool
	}{
		{name: "development default", env: map[string]string{}, expose: true},
		{name: "production default", env: map[string]string{"APP_ENV": "production"}, expose: false},
		{name: "production explicit", env: map[string]string{"APP_ENV": "production", "EXPOSE_RESET_TOKEN": "true"}, expose: true},
		{name: "development explicit off", env: map[string]string{"EXPOSE_RESET_TOKEN": "false"}, expose: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useDotenv(t, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := &Config{}
			cfg.LoadDefaults()
			require.NoError(t, parseEnv(cfg))
			assert.Equal(t, tt.expose, cfg.ExposeResetToken)
		})
	}
}
