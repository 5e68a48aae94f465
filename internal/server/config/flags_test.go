package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8080", "-g", ":6000", "-e", "production", "-f", "https://shop.example",
			"-b", "mongo", "-d", "db", "-m", "mongodb://m", "-r", "redis://r", "-s", "secret",
			"-t", "60", "-p", "15", "-l", "zap",
		},
			expected: &Config{
				HTTPAddr:                   "127.0.0.1:8080",
				GRPCHealthAddr:             ":6000",
				Environment:                "production",
				FrontendURL:                "https://shop.example",
				StoreBackend:               "mongo",
				DatabaseDSN:                "db",
				MongoURI:                   "mongodb://m",
				RedisURI:                   "redis://r",
				SecretKey:                  "secret",
				TokenValidityDuration:      60 * time.Minute,
				ResetTokenValidityDuration: 15 * time.Minute,
				LogBackend:                 "zap",
			}},
		{name: "unknown flags are filtered out", args: []string{"cmd", "-x", "1", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad int panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected, cmp.AllowUnexported(Config{})))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
